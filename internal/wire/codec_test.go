package wire

import (
	"testing"

	"github.com/mellonka/vipipe-go/internal/vperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }
func u64ptr(u uint64) *uint64 { return &u }

// TEST001: Caps round-trip.
func TestCapsRoundTrip(t *testing.T) {
	c := Caps{
		CapsStr: "video/x-raw", Width: 640, Height: 480,
		Format: strptr("RGB"), FpsN: intptr(30), FpsD: intptr(1), Framerate: strptr("30/1"),
	}
	parts, err := Encode(c)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, []byte{byte(TagCaps)}, parts[0])

	got, err := Decode(parts)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

// TEST002: tag dispatch — first byte of encode()[0] equals the variant's tag.
func TestTagDispatch(t *testing.T) {
	cases := []Message{
		Caps{CapsStr: "x", Width: 1, Height: 1},
		BufferMeta{PTS: 1, Width: 1, Height: 1},
		CustomMeta{Body: map[string]interface{}{}},
		Buffer{Payload: []byte("x")},
		EndOfStream{},
	}
	for _, m := range cases {
		parts, err := Encode(m)
		require.NoError(t, err)
		assert.Equal(t, byte(m.Tag()), parts[0][0])
		assert.Len(t, parts, m.PartCount())
	}
}

// TEST003: Buffer with both metas.
func TestBufferWithBothMetas(t *testing.T) {
	bm := BufferMeta{PTS: 1000, Width: 2, Height: 2, Flags: 0}
	cm := CustomMeta{Body: map[string]interface{}{"objects": []interface{}{}}}
	b := Buffer{BufferMeta: &bm, CustomMeta: &cm, Payload: []byte{0, 1, 2, 3}}

	parts, err := Encode(b)
	require.NoError(t, err)
	require.Len(t, parts, 6)
	assert.Equal(t, byte(TagBuffer), parts[0][0])
	assert.Equal(t, byte(TagBufferMeta), parts[1][0])
	assert.Equal(t, byte(TagCustomMeta), parts[3][0])
	assert.Equal(t, []byte{0, 1, 2, 3}, parts[5])

	got, err := Decode(parts)
	require.NoError(t, err)
	gotBuf := got.(Buffer)
	require.NotNil(t, gotBuf.BufferMeta)
	require.NotNil(t, gotBuf.CustomMeta)
	assert.Equal(t, bm, *gotBuf.BufferMeta)
	assert.Equal(t, cm.Body, gotBuf.CustomMeta.Body)
	assert.Equal(t, b.Payload, gotBuf.Payload)
}

// TEST004: Buffer with no meta.
func TestBufferNoMeta(t *testing.T) {
	b := Buffer{Payload: []byte{}}
	parts, err := Encode(b)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{
		{byte(TagBuffer)}, {}, {}, {}, {}, {},
	}, parts)

	got, err := Decode(parts)
	require.NoError(t, err)
	gotBuf := got.(Buffer)
	assert.Nil(t, gotBuf.BufferMeta)
	assert.Nil(t, gotBuf.CustomMeta)
	assert.Equal(t, []byte{}, gotBuf.Payload)
}

// TEST005: payload preservation for arbitrary lengths including zero and a
// large (1 MiB) payload.
func TestBufferPayloadPreservation(t *testing.T) {
	sizes := []int{0, 1, 4096, 1024 * 1024}
	for _, n := range sizes {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i)
		}
		parts, err := Encode(Buffer{Payload: payload})
		require.NoError(t, err)
		got, err := Decode(parts)
		require.NoError(t, err)
		assert.Equal(t, payload, got.(Buffer).Payload)
	}
}

// TEST017: payload preservation at 16 MiB, the largest size this protocol
// commits to round-tripping without truncation or corruption.
func TestBufferPayloadPreservationLarge(t *testing.T) {
	const size = 16 * 1024 * 1024
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i)
	}
	parts, err := Encode(Buffer{Payload: payload})
	require.NoError(t, err)
	got, err := Decode(parts)
	require.NoError(t, err)
	assert.Equal(t, payload, got.(Buffer).Payload)
}

// TEST006: malformed rejection — empty input.
func TestDecodeEmptyInput(t *testing.T) {
	_, err := Decode(nil)
	var mf *vperrors.MalformedFrame
	assert.ErrorAs(t, err, &mf)
}

// TEST007: malformed rejection — unknown tag.
func TestDecodeUnknownTag(t *testing.T) {
	_, err := Decode([][]byte{{0xFF}})
	var mf *vperrors.MalformedFrame
	assert.ErrorAs(t, err, &mf)
}

// TEST008: malformed rejection — wrong part count.
func TestDecodeWrongPartCount(t *testing.T) {
	_, err := Decode([][]byte{{byte(TagCaps)}})
	var mf *vperrors.MalformedFrame
	assert.ErrorAs(t, err, &mf)
}

// TEST009: malformed rejection — non-UTF-8 JSON slot.
func TestDecodeNonUTF8(t *testing.T) {
	_, err := Decode([][]byte{{byte(TagCaps)}, {0xFF, 0xFE, 0xFD}})
	var mf *vperrors.MalformedFrame
	assert.ErrorAs(t, err, &mf)
}

// TEST010: malformed rejection — missing required field.
func TestDecodeMissingRequiredField(t *testing.T) {
	_, err := Decode([][]byte{{byte(TagCaps)}, []byte(`{"caps_str":"x","width":1}`)})
	var mf *vperrors.MalformedFrame
	assert.ErrorAs(t, err, &mf)
}

// TEST011: unknown fields are ignored on decode.
func TestDecodeIgnoresUnknownFields(t *testing.T) {
	got, err := Decode([][]byte{
		{byte(TagCaps)},
		[]byte(`{"caps_str":"x","width":1,"height":1,"extra":"ignored"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "x", got.(Caps).CapsStr)
}

// TEST012: EndOfStream round-trip.
func TestEndOfStreamRoundTrip(t *testing.T) {
	parts, err := Encode(EndOfStream{})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{byte(TagEndOfStream)}}, parts)
	got, err := Decode(parts)
	require.NoError(t, err)
	assert.Equal(t, EndOfStream{}, got)
}

// TEST013: embedded buffer-meta tag that is present but not a valid
// placeholder/variant tag is malformed, not silently ignored.
func TestDecodeBufferBadEmbeddedTag(t *testing.T) {
	parts := [][]byte{
		{byte(TagBuffer)}, {0xAA}, []byte(`{}`), {}, {}, {},
	}
	_, err := Decode(parts)
	var mf *vperrors.MalformedFrame
	assert.ErrorAs(t, err, &mf)
}
