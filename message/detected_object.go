package message

// DetectedObject and ObjectsPayload are typed views over the "list of
// detected objects" CustomMeta shape seen throughout original_source's
// sample detectors (metadetect/detector.go, cowdetect/main.go): bounding
// boxes, class labels, confidence scores attached to a Buffer. They are a
// convenience layer only — message.As[ObjectsPayload] decodes a CustomMeta
// body into this shape but nothing on the wire changes.
type DetectedObject struct {
	Label string `json:"label"`
	Confidence float64 `json:"confidence"`
	BoundingBox [4]float64 `json:"bounding_box"` // x_min, y_min, x_max, y_max
}

type ObjectsPayload struct {
	Objects []DetectedObject `json:"objects"`
}
