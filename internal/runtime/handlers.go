package runtime

import "github.com/mellonka/vipipe-go/internal/wire"

// Flow is a supplemented handler return value (from original_source's
// handlers/base.py FLOW_RETURN_TYPES): it distinguishes "suppress, there is
// nothing to write" from "skip, do not even consider writing" — a
// refinement of "message | none" that mediabridge write-side metrics
// care about.
type Flow int

const (
	// FlowForward writes the returned message (if non-nil) as usual.
	FlowForward Flow = iota
	// FlowSkip suppresses the write regardless of the returned message,
	// without counting as a drop.
	FlowSkip
)

// Handlers is the visitor-object dispatch table: one field per closed
// message variant instead of a string-keyed registry, since the variant set
// is fixed rather than open-ended like the teacher's cap URNs
// (plugin_runtime.go's PluginRuntime.Register). Every field defaults to
// pass-through via NewHandlers.
//
// Handler parameters are value types, matching wire.Decode's return shape
// (wire.Caps, wire.Buffer, ... are returned by value, not by pointer — see
// wire/codec.go) so a type switch here sees exactly what Decode produced.
type Handlers struct {
	OnCaps       func(wire.Caps) (wire.Message, Flow)
	OnBuffer     func(wire.Buffer) (wire.Message, Flow)
	OnBufferMeta func(wire.BufferMeta) (wire.Message, Flow)
	OnCustomMeta func(wire.CustomMeta) (wire.Message, Flow)
	OnEOS        func(wire.EndOfStream) (wire.Message, Flow)
}

// NewHandlers returns a Handlers with every field set to pass-through,
// OnEOS included. The stop on EndOfStream is requested by dispatch, not by
// OnEOS.
func NewHandlers() *Handlers {
	h := &Handlers{}
	h.OnCaps = func(m wire.Caps) (wire.Message, Flow) { return m, FlowForward }
	h.OnBuffer = func(m wire.Buffer) (wire.Message, Flow) { return m, FlowForward }
	h.OnBufferMeta = func(m wire.BufferMeta) (wire.Message, Flow) { return m, FlowForward }
	h.OnCustomMeta = func(m wire.CustomMeta) (wire.Message, Flow) { return m, FlowForward }
	h.OnEOS = func(m wire.EndOfStream) (wire.Message, Flow) { return m, FlowForward }
	return h
}

// dispatch routes msg to its matching handler. The end-of-stream stop
// request is structural, not handler-discretionary: see DESIGN.md's Open
// Question decision on this.
func (h *Handlers) dispatch(msg wire.Message, requestStop func()) (wire.Message, Flow) {
	switch m := msg.(type) {
	case wire.Caps:
		return h.OnCaps(m)
	case wire.Buffer:
		return h.OnBuffer(m)
	case wire.BufferMeta:
		return h.OnBufferMeta(m)
	case wire.CustomMeta:
		return h.OnCustomMeta(m)
	case wire.EndOfStream:
		requestStop()
		return h.OnEOS(m)
	default:
		return msg, FlowForward
	}
}
