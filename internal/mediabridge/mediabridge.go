// Package mediabridge declares the narrow adapter contract a native media
// framework (GStreamer, RealSense, ...) implements to feed or drain a
// handler runtime. Nothing in this repo implements FrameSource or
// FrameSink; they exist for external collaborators to satisfy at the
// transport boundary. DefaultAnnotator is the one implementation provided
// here, of CustomMetaAnnotator.
package mediabridge

import (
	"encoding/json"

	"github.com/mellonka/vipipe-go/message"
)

// FrameSource is implemented by a native capture/decoder adapter that
// produces Caps/Buffer/EndOfStream values, grounded in original_source's
// transport/realsense/reader.py pull shape.
type FrameSource interface {
	NextCaps() (*message.Caps, bool, error)
	NextBuffer() (*message.Buffer, bool, error)
	NextEndOfStream() bool
}

// FrameSink is implemented by a native renderer/encoder adapter that
// consumes Caps/Buffer/EndOfStream values, grounded in original_source's
// transport/gstreamer/entity.py GstMessage push shape.
type FrameSink interface {
	OnCaps(*message.Caps) error
	OnBuffer(*message.Buffer) error
	OnEndOfStream() error
}

// CustomMetaAnnotator turns a Buffer's CustomMeta into an opaque binary
// annotation for a native framework that has no native JSON metadata
// channel. Supplemented from the pattern shared by both original_source
// bridge modules.
type CustomMetaAnnotator interface {
	AnnotateBinary(buf *message.Buffer) ([]byte, error)
}

// DefaultAnnotator marshals CustomMeta.Body to JSON bytes, the simplest
// binary annotation a framework adapter can attach verbatim.
type DefaultAnnotator struct{}

func (DefaultAnnotator) AnnotateBinary(buf *message.Buffer) ([]byte, error) {
	if buf.CustomMeta == nil {
		return nil, nil
	}
	return json.Marshal(buf.CustomMeta.Body)
}
