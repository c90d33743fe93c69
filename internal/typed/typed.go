// Package typed layers the wire codec over the transport channel, giving
// callers whole Messages instead of raw byte parts. Grounded on the
// teacher's bifaci/host.go pairing of a raw frame stream with a decoding
// front end.
package typed

import (
	"context"
	"errors"

	"github.com/mellonka/vipipe-go/internal/logger"
	"github.com/mellonka/vipipe-go/internal/transport"
	"github.com/mellonka/vipipe-go/internal/vperrors"
	"github.com/mellonka/vipipe-go/internal/wire"
)

// ReadOutcome mirrors transport.ReadOutcome at the message level: exactly
// one of Got, Empty, or Closed holds for every Read.
type ReadOutcome = transport.ReadOutcome

const (
	Got    = transport.OutcomeGot
	Empty  = transport.OutcomeEmpty
	Closed = transport.OutcomeClosed
)

// Item is one element of a Messages sequence.
type Item struct {
	Msg     wire.Message
	Outcome ReadOutcome
}

// Reader decodes wire.Message values off a transport.Reader.
type Reader struct {
	t *transport.Reader
}

func NewReader(opts transport.ReaderOptions) (*Reader, error) {
	t, err := transport.NewReader(opts)
	if err != nil {
		return nil, err
	}
	return &Reader{t: t}, nil
}

func (r *Reader) Start() error { return r.t.Start() }
func (r *Reader) Stop() error  { return r.t.Stop() }

// Read returns the next decoded message, or Empty/Closed per the
// three-valued contract. A malformed frame surfaces as a MalformedFrame
// error with outcome Got and a nil message (the caller decides whether to
// skip or abort; the runtime skips and keeps going).
func (r *Reader) Read() (wire.Message, ReadOutcome, error) {
	parts, outcome, err := r.t.ReadMultipart()
	if err != nil || outcome != Got {
		return nil, outcome, err
	}
	msg, err := wire.Decode(parts)
	if err != nil {
		return nil, Got, &vperrors.MalformedFrame{Op: "typed.Read", Err: err}
	}
	return msg, Got, nil
}

// Messages returns a lazy channel of decoded Items; it stops producing once
// ctx is cancelled or the transport reports Closed. A malformed frame is
// logged and skipped here rather than forwarded ("MalformedFrame from the
// reader: logged and skipped; the loop continues") — every Item with
// outcome Got carries a successfully decoded Msg.
func (r *Reader) Messages(ctx context.Context) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			msg, outcome, err := r.Read()
			if err != nil {
				var malformed *vperrors.MalformedFrame
				if !errors.As(err, &malformed) {
					return
				}
				logger.Logger().Warn("typed: skipping malformed frame", "error", err)
				continue
			}
			select {
			case out <- Item{Msg: msg, Outcome: outcome}:
			case <-ctx.Done():
				return
			}
			if outcome == Closed {
				return
			}
		}
	}()
	return out
}

// Writer encodes wire.Message values onto a transport.Writer.
type Writer struct {
	t *transport.Writer
}

func NewWriter(opts transport.WriterOptions) (*Writer, error) {
	t, err := transport.NewWriter(opts)
	if err != nil {
		return nil, err
	}
	return &Writer{t: t}, nil
}

func (w *Writer) Start() error { return w.t.Start() }
func (w *Writer) Stop() error  { return w.t.Stop() }

func (w *Writer) Write(msg wire.Message) error {
	parts, err := wire.Encode(msg)
	if err != nil {
		return &vperrors.MalformedFrame{Op: "typed.Write", Err: err}
	}
	return w.t.WriteMultipart(parts)
}
