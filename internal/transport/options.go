// Package transport implements the bounded multipart channel: a
// message-oriented abstraction over a publish/subscribe or push/pull socket
// exposing start/stop/ReadMultipart/WriteMultipart, with non-blocking
// semantics and bounded queues. Conflation is not supported: the Conflate
// option is rejected with ConfigError.
//
// Grounded on cbor/io.go's FrameReader/FrameWriter length-prefix convention
// (generalized from one blob per frame to N parts per frame) and on
// original_source's transport/zeromq/{reader,writer}.py socket-option
// dataclasses, transliterated field-for-field below. The retrieval pack has
// no fetchable Go pub/sub socket library (see DESIGN.md), so the socket
// layer itself sits on stdlib net. Writers always bind and readers always
// connect, in both socket modes (see Writer and Reader).
package transport

// SocketMode selects the publish/subscribe or push/pull role of a reader or
// writer.
type SocketMode int

const (
	ModeSubscribe SocketMode = iota
	ModePull
	ModePublish
	ModePush
)

func (m SocketMode) String() string {
	switch m {
	case ModeSubscribe:
		return "subscribe"
	case ModePull:
		return "pull"
	case ModePublish:
		return "publish"
	case ModePush:
		return "push"
	default:
		return "unknown"
	}
}

// ReaderOptions mirrors original_source's ZeroMQReaderConfig field-for-field
// (address, socket_type, topic, buffer_length, buffer_size_oc,
// read_timeout, conflate, dontwait), renamed to this module's conventions.
type ReaderOptions struct {
	Address string
	// SocketMode must be ModeSubscribe or ModePull.
	SocketMode SocketMode
	// Topic is the exact-prefix subscription filter; only meaningful when
	// SocketMode == ModeSubscribe.
	Topic []byte
	// InboundQueueDepth is the high-water mark, in messages.
	InboundQueueDepth int
	// OSRecvBufferBytes sizes the OS socket receive buffer.
	OSRecvBufferBytes int
	// ReadTimeoutMs bounds ReadMultipart, in milliseconds. 0 means return
	// Empty immediately if nothing is queued (this is also the zero value
	// of ReaderOptions); a negative value is unset and falls back to the
	// default wait.
	ReadTimeoutMs int
	// Conflate, if true, is rejected by NewReader with ConfigError; every
	// message on this wire is multipart.
	Conflate bool
	// NonBlocking, if true, ReadMultipart never waits.
	NonBlocking bool
}

// WriterOptions mirrors original_source's ZeroMQWriterConfig.
type WriterOptions struct {
	Address string
	// SocketMode must be ModePublish or ModePush.
	SocketMode SocketMode
	// OutboundQueueDepth is the high-water mark, in messages.
	OutboundQueueDepth int
	// OSSendBufferBytes sizes the OS socket send buffer.
	OSSendBufferBytes int
	// SendTimeoutMs bounds WriteMultipart, in milliseconds. 0 means fail
	// with WouldBlock immediately if the queue is full; a negative value is
	// unset and falls back to the default wait.
	SendTimeoutMs int
	// Immediate, if true, drops messages when no peer is connected rather
	// than buffering them.
	Immediate bool
	// Conflate, if true, is rejected by NewWriter with ConfigError.
	Conflate bool
	// LingerMs bounds how long Stop waits to drain pending messages; 0 =
	// drop immediately, -1 = wait indefinitely.
	LingerMs int
	// NonBlocking, if true, WriteMultipart never waits.
	NonBlocking bool
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// defaultTimeoutMs resolves a timeout option where 0 is a meaningful,
// explicit "don't wait" value distinct from "unset": only a negative v falls
// back to def.
func defaultTimeoutMs(v, def int) int {
	if v < 0 {
		return def
	}
	return v
}
