package transport

import (
	"strings"

	"github.com/mellonka/vipipe-go/internal/vperrors"
)

// resolvedAddress is a parsed transport URI: tcp://host:port,
// ipc:///absolute/path, and the inproc:// extension for in-process tests.
type resolvedAddress struct {
	network string // "tcp", "unix", "inproc"
	addr string
}

func parseAddress(op, raw string) (resolvedAddress, error) {
	switch {
	case strings.HasPrefix(raw, "tcp://"):
		hostport := strings.TrimPrefix(raw, "tcp://")
		if hostport == "" {
			return resolvedAddress{}, &vperrors.ConfigError{Op: op, Err: emptyAddressError{raw}}
		}
		return resolvedAddress{network: "tcp", addr: hostport}, nil
	case strings.HasPrefix(raw, "ipc://"):
		path := strings.TrimPrefix(raw, "ipc://")
		if !strings.HasPrefix(path, "/") {
			return resolvedAddress{}, &vperrors.ConfigError{Op: op, Err: nonAbsoluteIPCPathError{raw}}
		}
		return resolvedAddress{network: "unix", addr: path}, nil
	case strings.HasPrefix(raw, "inproc://"):
		name := strings.TrimPrefix(raw, "inproc://")
		if name == "" {
			return resolvedAddress{}, &vperrors.ConfigError{Op: op, Err: emptyAddressError{raw}}
		}
		return resolvedAddress{network: "inproc", addr: name}, nil
	default:
		return resolvedAddress{}, &vperrors.ConfigError{Op: op, Err: unsupportedSchemeError{raw}}
	}
}

type emptyAddressError struct{ raw string }

func (e emptyAddressError) Error() string { return "empty address in URI: " + e.raw }

type nonAbsoluteIPCPathError struct{ raw string }

func (e nonAbsoluteIPCPathError) Error() string { return "ipc:// path must be absolute: " + e.raw }

type unsupportedSchemeError struct{ raw string }

func (e unsupportedSchemeError) Error() string { return "unsupported address scheme: " + e.raw }
