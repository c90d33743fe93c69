// Command vipipe-relay is a minimal pass-through stage: it reads messages
// off one transport and forwards them to another with default handlers.
// Optional flags validate custom_meta bodies against a JSON Schema
// (-custom-meta.schema-file) and replace the Buffer handler with one that
// annotates each Buffer's CustomMeta (-annotate.correlate,
// -annotate.detections).
// Grounded on cmd/rtmp-server/{main,flags}.go's flag-then-construct-then-
// signal-wait shape.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mellonka/vipipe-go/internal/logger"
	"github.com/mellonka/vipipe-go/internal/meta"
	"github.com/mellonka/vipipe-go/internal/runtime"
	"github.com/mellonka/vipipe-go/internal/transport"
	"github.com/mellonka/vipipe-go/internal/typed"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	reader, err := typed.NewReader(transport.ReaderOptions{
		Address:           cfg.inAddr,
		SocketMode:        socketMode(cfg.inMode),
		Topic:             []byte(cfg.topic),
		ReadTimeoutMs:     cfg.readTimeout,
		InboundQueueDepth: cfg.queueDepth,
	})
	if err != nil {
		log.Error("invalid inbound transport config", "error", err)
		os.Exit(1)
	}

	writer, err := typed.NewWriter(transport.WriterOptions{
		Address:            cfg.outAddr,
		SocketMode:         socketModeOut(cfg.outMode),
		SendTimeoutMs:      cfg.sendTimeout,
		OutboundQueueDepth: cfg.queueDepth,
	})
	if err != nil {
		log.Error("invalid outbound transport config", "error", err)
		os.Exit(1)
	}

	var rtOpts []runtime.Option
	if cfg.customMetaSchema != "" {
		validator, err := meta.NewValidatorFromFile(cfg.customMetaSchema)
		if err != nil {
			log.Error("invalid custom_meta schema", "error", err)
			os.Exit(1)
		}
		rtOpts = append(rtOpts, runtime.WithCustomMetaValidator(validator))
	}

	rt := runtime.New(reader, writer, rtOpts...)
	if cfg.annotateCorrelate || cfg.annotateDetections {
		rt.Handlers.OnBuffer = annotateBuffer(cfg)
	}
	rt.OnStartup = func() error {
		log.Info("relay started", "in", cfg.inAddr, "out", cfg.outAddr, "version", version)
		return nil
	}
	rt.OnShutdown = func() {
		log.Info("relay stopped")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Error("relay terminated with error", "error", err)
		os.Exit(1)
	}
}

func socketMode(s string) transport.SocketMode {
	if s == "subscribe" {
		return transport.ModeSubscribe
	}
	return transport.ModePull
}

func socketModeOut(s string) transport.SocketMode {
	if s == "publish" {
		return transport.ModePublish
	}
	return transport.ModePush
}
