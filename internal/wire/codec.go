package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/mellonka/vipipe-go/internal/vperrors"
)

var placeholder = []byte{}

// Encode produces the exact ordered byte-part sequence for m. The
// Buffer payload is referenced, never copied: the encode path is written so
// the payload is referenced, not copied.
func Encode(m Message) ([][]byte, error) {
	switch v := m.(type) {
	case Caps:
		return encodeCaps(v)
	case *Caps:
		return encodeCaps(*v)
	case BufferMeta:
		return encodeBufferMeta(v)
	case *BufferMeta:
		return encodeBufferMeta(*v)
	case CustomMeta:
		return encodeCustomMeta(v)
	case *CustomMeta:
		return encodeCustomMeta(*v)
	case Buffer:
		return encodeBuffer(v)
	case *Buffer:
		return encodeBuffer(*v)
	case EndOfStream:
		return [][]byte{{byte(TagEndOfStream)}}, nil
	case *EndOfStream:
		return [][]byte{{byte(TagEndOfStream)}}, nil
	default:
		return nil, &vperrors.InvalidState{Op: "wire.Encode", Err: unknownMessageTypeError{}}
	}
}

type unknownMessageTypeError struct{}

func (unknownMessageTypeError) Error() string { return "unknown message type" }

func encodeCaps(c Caps) ([][]byte, error) {
	body, err := json.Marshal(capsJSON{
		CapsStr: c.CapsStr, Width: c.Width, Height: c.Height,
		Format: c.Format, FpsN: c.FpsN, FpsD: c.FpsD, Framerate: c.Framerate,
	})
	if err != nil {
		return nil, &vperrors.MalformedFrame{Op: "encode.caps", Err: err}
	}
	return [][]byte{{byte(TagCaps)}, body}, nil
}

func encodeBufferMeta(b BufferMeta) ([][]byte, error) {
	body, err := json.Marshal(bufferMetaJSON{
		PTS: b.PTS, Width: b.Width, Height: b.Height, Flags: b.Flags,
		DTS: b.DTS, Duration: b.Duration, CapsStr: b.CapsStr,
	})
	if err != nil {
		return nil, &vperrors.MalformedFrame{Op: "encode.buffer_meta", Err: err}
	}
	return [][]byte{{byte(TagBufferMeta)}, body}, nil
}

func encodeCustomMeta(c CustomMeta) ([][]byte, error) {
	body, err := json.Marshal(c.Body)
	if err != nil {
		return nil, &vperrors.MalformedFrame{Op: "encode.custom_meta", Err: err}
	}
	return [][]byte{{byte(TagCustomMeta)}, body}, nil
}

func encodeBuffer(b Buffer) ([][]byte, error) {
	parts := make([][]byte, 0, bufferPartCount)
	parts = append(parts, []byte{byte(TagBuffer)})

	if b.BufferMeta != nil {
		bm, err := encodeBufferMeta(*b.BufferMeta)
		if err != nil {
			return nil, err
		}
		parts = append(parts, bm...)
	} else {
		parts = append(parts, placeholder, placeholder)
	}

	if b.CustomMeta != nil {
		cm, err := encodeCustomMeta(*b.CustomMeta)
		if err != nil {
			return nil, err
		}
		parts = append(parts, cm...)
	} else {
		parts = append(parts, placeholder, placeholder)
	}

	// Payload is appended by reference: Go slices already share the backing
	// array, so no copy happens here or in the transport's scatter/gather
	// write path.
	parts = append(parts, b.Payload)
	return parts, nil
}

// Decode reads part 0's tag byte, validates the part count for that
// variant, and dispatches to the variant's parser.
func Decode(parts [][]byte) (Message, error) {
	if len(parts) == 0 {
		return nil, &vperrors.MalformedFrame{Op: "decode", Err: emptyInputError{}}
	}
	if len(parts[0]) != 1 {
		return nil, &vperrors.MalformedFrame{Op: "decode", Err: badTagLengthError{}}
	}
	tag := Tag(parts[0][0])

	switch tag {
	case TagCaps:
		if len(parts) != capsPartCount {
			return nil, wrongPartCountErr(tag, capsPartCount, len(parts))
		}
		return decodeCaps(parts[1])
	case TagBufferMeta:
		if len(parts) != bufferMetaPartCount {
			return nil, wrongPartCountErr(tag, bufferMetaPartCount, len(parts))
		}
		return decodeBufferMeta(parts[1])
	case TagCustomMeta:
		if len(parts) != customMetaPartCount {
			return nil, wrongPartCountErr(tag, customMetaPartCount, len(parts))
		}
		return decodeCustomMeta(parts[1])
	case TagBuffer:
		if len(parts) != bufferPartCount {
			return nil, wrongPartCountErr(tag, bufferPartCount, len(parts))
		}
		return decodeBuffer(parts)
	case TagEndOfStream:
		if len(parts) != endOfStreamPartCount {
			return nil, wrongPartCountErr(tag, endOfStreamPartCount, len(parts))
		}
		return EndOfStream{}, nil
	default:
		return nil, &vperrors.MalformedFrame{Op: "decode", Err: unknownTagError{tag}}
	}
}

func decodeCaps(part []byte) (Message, error) {
	if _, err := requireJSONFields(part, "caps_str", "width", "height"); err != nil {
		return nil, &vperrors.MalformedFrame{Op: "decode.caps", Err: err}
	}
	var j capsJSON
	if err := json.Unmarshal(part, &j); err != nil {
		return nil, &vperrors.MalformedFrame{Op: "decode.caps", Err: err}
	}
	return Caps{
		CapsStr: j.CapsStr, Width: j.Width, Height: j.Height,
		Format: j.Format, FpsN: j.FpsN, FpsD: j.FpsD, Framerate: j.Framerate,
	}, nil
}

func decodeBufferMeta(part []byte) (Message, error) {
	if _, err := requireJSONFields(part, "pts", "width", "height", "flags"); err != nil {
		return nil, &vperrors.MalformedFrame{Op: "decode.buffer_meta", Err: err}
	}
	var j bufferMetaJSON
	if err := json.Unmarshal(part, &j); err != nil {
		return nil, &vperrors.MalformedFrame{Op: "decode.buffer_meta", Err: err}
	}
	return BufferMeta{
		PTS: j.PTS, Width: j.Width, Height: j.Height, Flags: j.Flags,
		DTS: j.DTS, Duration: j.Duration, CapsStr: j.CapsStr,
	}, nil
}

func decodeCustomMeta(part []byte) (Message, error) {
	body, err := decodeJSONObject(part)
	if err != nil {
		return nil, &vperrors.MalformedFrame{Op: "decode.custom_meta", Err: err}
	}
	return CustomMeta{Body: body}, nil
}

// decodeBuffer reads the 6-part Buffer frame: buffer-meta window at index
// 1-2, custom-meta window at index 3-4, payload at index 5.
func decodeBuffer(parts [][]byte) (Message, error) {
	buf := Buffer{Payload: parts[5]}

	bmTag, bmBody := parts[1], parts[2]
	if len(bmTag) == 0 {
		// Absent, not an error.
	} else if len(bmTag) == 1 && Tag(bmTag[0]) == TagBufferMeta {
		m, err := decodeBufferMeta(bmBody)
		if err != nil {
			return nil, err
		}
		bm := m.(BufferMeta)
		buf.BufferMeta = &bm
	} else {
		return nil, &vperrors.MalformedFrame{Op: "decode.buffer", Err: badEmbeddedTagError{"buffer_meta"}}
	}

	cmTag, cmBody := parts[3], parts[4]
	if len(cmTag) == 0 {
		// Absent, not an error.
	} else if len(cmTag) == 1 && Tag(cmTag[0]) == TagCustomMeta {
		m, err := decodeCustomMeta(cmBody)
		if err != nil {
			return nil, err
		}
		cm := m.(CustomMeta)
		buf.CustomMeta = &cm
	} else {
		return nil, &vperrors.MalformedFrame{Op: "decode.buffer", Err: badEmbeddedTagError{"custom_meta"}}
	}

	return buf, nil
}

// requireJSONFields validates UTF-8 and the presence of every required
// field name, without caring about unknown fields (tie-breaks).
func requireJSONFields(data []byte, required...string) (map[string]json.RawMessage, error) {
	if !utf8.Valid(data) {
		return nil, invalidUTF8Error{}
	}
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	for _, f := range required {
		if _, ok := raw[f]; !ok {
			return nil, missingFieldError{f}
		}
	}
	return raw, nil
}

func decodeJSONObject(data []byte) (map[string]interface{}, error) {
	if !utf8.Valid(data) {
		return nil, invalidUTF8Error{}
	}
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func wrongPartCountErr(tag Tag, want, got int) error {
	return &vperrors.MalformedFrame{Op: "decode", Err: wrongPartCountError{tag, want, got}}
}

type emptyInputError struct{}

func (emptyInputError) Error() string { return "empty input" }

type badTagLengthError struct{}

func (badTagLengthError) Error() string { return "part 0 is not exactly one byte" }

type unknownTagError struct{ tag Tag }

func (e unknownTagError) Error() string { return "unknown tag byte: " + e.tag.String() }

type wrongPartCountError struct {
	tag Tag
	want, got int
}

func (e wrongPartCountError) Error() string {
	return fmt.Sprintf("wrong part count for %s: want %d got %d", e.tag, e.want, e.got)
}

type invalidUTF8Error struct{}

func (invalidUTF8Error) Error() string { return "meta JSON is not valid UTF-8" }

type missingFieldError struct{ field string }

func (e missingFieldError) Error() string { return "missing required field: " + e.field }

type badEmbeddedTagError struct{ which string }

func (e badEmbeddedTagError) Error() string { return "invalid embedded " + e.which + " tag" }
