// Package message is the public facade over internal/wire: the five
// message variants plus encode/decode, re-exported as the stable external
// surface a stage author imports (internal/wire stays internal so the
// codec's error types and registry details aren't part of the API).
package message

import (
	"encoding/json"
	"fmt"

	"github.com/mellonka/vipipe-go/internal/wire"
)

type (
	Message = wire.Message
	Tag = wire.Tag
	Caps = wire.Caps
	BufferMeta = wire.BufferMeta
	CustomMeta = wire.CustomMeta
	Buffer = wire.Buffer
	EndOfStream = wire.EndOfStream
)

const (
	TagCaps = wire.TagCaps
	TagBuffer = wire.TagBuffer
	TagBufferMeta = wire.TagBufferMeta
	TagCustomMeta = wire.TagCustomMeta
	TagEndOfStream = wire.TagEndOfStream
)

// Encode and Decode are the codec entry points.
func Encode(m Message) ([][]byte, error) { return wire.Encode(m) }
func Decode(parts [][]byte) (Message, error) { return wire.Decode(parts) }

// As decodes a CustomMeta's generic JSON body into a typed convenience view
// such as ObjectsPayload, without changing anything on the wire. It
// round-trips through encoding/json rather than reinterpreting the
// map[string]interface{} directly, so field tags and numeric types behave
// exactly as they would for a value that started out as JSON.
func As[T any](cm *CustomMeta) (T, error) {
	var zero T
	raw, err := json.Marshal(cm.Body)
	if err != nil {
		return zero, fmt.Errorf("message.As: re-marshal custom_meta body: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("message.As: decode into %T: %w", out, err)
	}
	return out, nil
}
