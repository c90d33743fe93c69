package main

import (
	"github.com/mellonka/vipipe-go/internal/logger"
	"github.com/mellonka/vipipe-go/internal/runtime"
	"github.com/mellonka/vipipe-go/internal/wire/cborext"
	"github.com/mellonka/vipipe-go/message"
)

// annotateBuffer builds an OnBuffer handler that demonstrates the optional
// message-level supplements riding on top of the mandatory JSON envelope: a
// correlation id threading one logical unit of work across a pipeline, and
// a CBOR side-channel carrying a detected-object summary. Neither changes
// the wire envelope itself; both live entirely inside CustomMeta.Body.
func annotateBuffer(cfg *cliConfig) func(message.Buffer) (message.Message, runtime.Flow) {
	log := logger.Logger().With("component", "annotate")

	return func(b message.Buffer) (message.Message, runtime.Flow) {
		if b.CustomMeta != nil {
			if existing, err := message.As[message.ObjectsPayload](b.CustomMeta); err == nil && len(existing.Objects) > 0 {
				log.Debug("buffer already carries detections", "count", len(existing.Objects))
			}
		}

		body := map[string]interface{}{}
		if b.CustomMeta != nil {
			body = b.CustomMeta.Body
		}
		cm := message.CustomMeta{Body: body}

		if cfg.annotateCorrelate {
			if id, ok := message.CorrelationID(cm); ok {
				log.Debug("buffer already correlated", "correlation_id", id)
			} else {
				cm = message.WithCorrelationID(cm, message.NewCorrelationID())
			}
		}

		if cfg.annotateDetections {
			payload := message.ObjectsPayload{
				Objects: []message.DetectedObject{
					{Label: "frame", Confidence: 1, BoundingBox: [4]float64{0, 0, 1, 1}},
				},
			}
			attached, err := cborext.Attach(cm.Body, payload)
			if err != nil {
				log.Warn("failed to attach cbor detections", "error", err)
			} else {
				cm = message.CustomMeta{Body: attached}
				var roundTrip message.ObjectsPayload
				if ok, err := cborext.Extract(cm.Body, &roundTrip); err == nil && ok {
					log.Debug("attached cbor detections", "count", len(roundTrip.Objects))
				}
			}
		}

		b.CustomMeta = &cm
		return b, runtime.FlowForward
	}
}
