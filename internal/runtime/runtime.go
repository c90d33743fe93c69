// Package runtime implements the handler runtime: the per-stage main loop
// that drives a typed reader/writer pair through startup, message dispatch,
// and a shutdown sequence that always runs. Grounded on the teacher's
// PluginRuntime.Run top-level dispatch shape (plugin_runtime.go),
// generalized from a string-keyed handler map to the fixed five-variant
// Handlers table.
package runtime

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/mellonka/vipipe-go/internal/logger"
	"github.com/mellonka/vipipe-go/internal/meta"
	"github.com/mellonka/vipipe-go/internal/typed"
	"github.com/mellonka/vipipe-go/internal/vperrors"
	"github.com/mellonka/vipipe-go/internal/wire"
)

// Runtime owns a typed reader and an optional typed writer and drives the
// main loop.
type Runtime struct {
	Reader *typed.Reader
	Writer *typed.Writer

	Handlers *Handlers

	// OnStartup is called once after transports start, before the first
	// message is read. OnShutdown is called once after the loop exits,
	// regardless of cause.
	OnStartup  func() error
	OnShutdown func()

	stopRequested atomic.Bool
	eosWritten    bool

	customMetaValidator *meta.Validator
}

// Option configures a Runtime at construction time.
type Option func(*Runtime)

// WithCustomMetaValidator opts the runtime into schema validation of every
// CustomMeta body it reads, standalone or embedded in a Buffer. Off by
// default: a Runtime constructed without this option never touches the meta
// package. A validation failure aborts Run with the *meta.ValidationError.
func WithCustomMetaValidator(v *meta.Validator) Option {
	return func(rt *Runtime) { rt.customMetaValidator = v }
}

// New constructs a Runtime with a default pass-through Handlers table.
func New(reader *typed.Reader, writer *typed.Writer, opts ...Option) *Runtime {
	rt := &Runtime{Reader: reader, Writer: writer, Handlers: NewHandlers()}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// validateCustomMeta checks msg's CustomMeta body (standalone or embedded in
// a Buffer) against the configured validator, if any.
func (rt *Runtime) validateCustomMeta(msg wire.Message) error {
	if rt.customMetaValidator == nil {
		return nil
	}
	switch m := msg.(type) {
	case wire.CustomMeta:
		return rt.customMetaValidator.Validate(m.Body)
	case wire.Buffer:
		if m.CustomMeta != nil {
			return rt.customMetaValidator.Validate(m.CustomMeta.Body)
		}
	}
	return nil
}

// SetStop requests the loop exit after the current iteration, observed at
// iteration boundaries.
func (rt *Runtime) SetStop() { rt.stopRequested.Store(true) }

func (rt *Runtime) stopping() bool { return rt.stopRequested.Load() }

// Run blocks until EndOfStream, a handler error, a transport error, ctx
// cancellation, or SetStop. The shutdown sequence (final EndOfStream,
// stopping reader/writer, OnShutdown) always executes, even when a handler
// panics or errors.
func (rt *Runtime) Run(ctx context.Context) (runErr error) {
	if err := rt.Reader.Start(); err != nil {
		return err
	}
	if rt.Writer != nil {
		if err := rt.Writer.Start(); err != nil {
			_ = rt.Reader.Stop()
			return err
		}
	}

	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				runErr = err
			} else {
				runErr = panicError{r}
			}
		}
		rt.shutdown()
	}()

	if rt.OnStartup != nil {
		if err := rt.OnStartup(); err != nil {
			return err
		}
	}

	for {
		if rt.stopping() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, outcome, err := rt.Reader.Read()
		if err != nil {
			var malformed *vperrors.MalformedFrame
			if errors.As(err, &malformed) {
				logger.Logger().Warn("runtime: skipping malformed frame", "error", err)
				continue
			}
			return err
		}
		switch outcome {
		case typed.Closed:
			return nil
		case typed.Empty:
			continue
		}

		if err := rt.validateCustomMeta(msg); err != nil {
			return err
		}

		out, flow := rt.Handlers.dispatch(msg, rt.SetStop)
		if flow == FlowForward && out != nil && rt.Writer != nil {
			if err := rt.Writer.Write(out); err != nil {
				var wouldBlock *vperrors.WouldBlock
				if !errors.As(err, &wouldBlock) {
					return err
				}
				logger.Logger().Warn("runtime: dropped outbound message", "error", err)
			} else if out.Tag() == wire.TagEndOfStream {
				rt.eosWritten = true
			}
		}

		if rt.stopping() {
			return nil
		}
	}
}

func (rt *Runtime) shutdown() {
	if rt.Writer != nil {
		if !rt.eosWritten {
			if err := rt.Writer.Write(wire.EndOfStream{}); err != nil {
				logger.Logger().Warn("runtime: failed to write final end-of-stream", "error", err)
			}
		}
		_ = rt.Writer.Stop()
	}
	_ = rt.Reader.Stop()
	if rt.OnShutdown != nil {
		rt.OnShutdown()
	}
}

type panicError struct{ v interface{} }

func (e panicError) Error() string {
	if err, ok := e.v.(error); ok {
		return "handler panicked: " + err.Error()
	}
	return "handler panicked"
}
