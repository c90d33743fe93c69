package message

import "github.com/google/uuid"

// correlationIDField is the well-known CustomMeta.Body key carrying a
// message's correlation identifier, grounded in bifaci/frame.go's
// MessageId (there a mandatory frame field; here an optional CustomMeta
// convenience since CustomMeta body is the only extensible slot).
const correlationIDField = "_correlation_id"

// NewCorrelationID mints a random identifier a stage can thread through a
// pipeline of Buffers sharing one logical unit of work (e.g. one decoded
// frame and its downstream detections), the same role bifaci/frame.go's
// NewMessageIdRandom plays for request/response pairing.
func NewCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a copy of cm with id attached under the
// well-known field; it does not mutate cm.Body.
func WithCorrelationID(cm CustomMeta, id string) CustomMeta {
	body := make(map[string]interface{}, len(cm.Body)+1)
	for k, v := range cm.Body {
		body[k] = v
	}
	body[correlationIDField] = id
	return CustomMeta{Body: body}
}

// CorrelationID reads the well-known field back out, if present.
func CorrelationID(cm CustomMeta) (string, bool) {
	v, ok := cm.Body[correlationIDField]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
