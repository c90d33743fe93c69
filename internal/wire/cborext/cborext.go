// Package cborext implements an optional CBOR-encoded side channel for
// CustomMeta attachments. It is never part of the mandatory JSON envelope —
// a stage that never calls Attach or Extract never touches CBOR at all.
//
// Grounded on the teacher's integer-keyed CBOR map encoding
// (bifaci/codec.go's EncodeFrame), narrowed to a single opaque blob keyed
// under a well-known CustomMeta field name instead of a whole frame schema.
package cborext

import (
	"encoding/base64"

	"github.com/fxamacker/cbor/v2"
)

// extAttrsField is the CustomMeta.Body key under which the CBOR-encoded
// payload is embedded when present. The JSON envelope carries it as a
// base64 string (encoding/json's default []byte marshaling), keeping the
// outer CustomMeta body valid UTF-8 JSON.
const extAttrsField = "_ext_attrs_cbor"

// Attach CBOR-encodes v and stores it under the well-known field of body,
// returning a new map (body is not mutated).
func Attach(body map[string]interface{}, v interface{}) (map[string]interface{}, error) {
	encoded, err := cbor.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(body)+1)
	for k, val := range body {
		out[k] = val
	}
	out[extAttrsField] = []byte(encoded)
	return out, nil
}

// Extract decodes the CBOR side channel of body into v, if present.
// Returns false if body carries no extended attributes.
func Extract(body map[string]interface{}, v interface{}) (bool, error) {
	raw, ok := body[extAttrsField]
	if !ok {
		return false, nil
	}
	var encoded []byte
	switch b := raw.(type) {
	case []byte:
		encoded = b
	case string:
		// encoding/json round-trips []byte as a base64 string; after a
		// generic map[string]interface{} decode it surfaces as string.
		decoded, err := base64.StdEncoding.DecodeString(b)
		if err != nil {
			return false, err
		}
		encoded = decoded
	default:
		return false, errUnexpectedType{}
	}
	if err := cbor.Unmarshal(encoded, v); err != nil {
		return false, err
	}
	return true, nil
}

type errUnexpectedType struct{}

func (errUnexpectedType) Error() string { return "unexpected type for extended attributes field" }
