package main

import (
	"flag"
	"fmt"
	"os"
)

var version = "dev"

type cliConfig struct {
	inAddr      string
	inMode      string
	outAddr     string
	outMode     string
	topic       string
	logLevel    string
	readTimeout        int
	sendTimeout        int
	queueDepth         int
	customMetaSchema   string
	annotateCorrelate  bool
	annotateDetections bool
	showVersion        bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("vipipe-relay", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.inAddr, "in.addr", "", "inbound transport address (tcp://, ipc://, inproc://)")
	fs.StringVar(&cfg.inMode, "in.mode", "pull", "inbound socket mode: subscribe|pull")
	fs.StringVar(&cfg.outAddr, "out.addr", "", "outbound transport address")
	fs.StringVar(&cfg.outMode, "out.mode", "push", "outbound socket mode: publish|push")
	fs.StringVar(&cfg.topic, "in.topic", "", "subscribe topic filter (only with in.mode=subscribe)")
	fs.StringVar(&cfg.logLevel, "log.level", "info", "log level: debug|info|warn|error")
	fs.IntVar(&cfg.readTimeout, "in.read-timeout-ms", 200, "read_multipart timeout in milliseconds")
	fs.IntVar(&cfg.sendTimeout, "out.send-timeout-ms", 200, "write_multipart timeout in milliseconds")
	fs.IntVar(&cfg.queueDepth, "queue-depth", 10, "inbound/outbound high-water mark, in messages")
	fs.StringVar(&cfg.customMetaSchema, "custom-meta.schema-file", "", "path to a JSON Schema file; when set, every custom_meta body is validated against it")
	fs.BoolVar(&cfg.annotateCorrelate, "annotate.correlate", false, "stamp outbound buffers with a correlation id when one is not already present")
	fs.BoolVar(&cfg.annotateDetections, "annotate.detections", false, "attach a CBOR-encoded detected-object summary to outbound buffers")
	fs.BoolVar(&cfg.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.showVersion {
		return cfg, nil
	}
	if cfg.inAddr == "" {
		return nil, fmt.Errorf("in.addr is required")
	}
	if cfg.outAddr == "" {
		return nil, fmt.Errorf("out.addr is required")
	}
	switch cfg.inMode {
	case "subscribe", "pull":
	default:
		return nil, fmt.Errorf("invalid in.mode %q", cfg.inMode)
	}
	switch cfg.outMode {
	case "publish", "push":
	default:
		return nil, fmt.Errorf("invalid out.mode %q", cfg.outMode)
	}
	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log.level %q", cfg.logLevel)
	}

	return cfg, nil
}
