// Package wire implements the typed multipart message protocol: the five
// wire variants, their byte-part layout, and the tag registry that
// dispatches decode to the right variant parser.
//
// The registry is realized as a closed tagged union: variants are
// enumerated as concrete struct types implementing Message, and dispatch is
// a type switch in Encode and a switch on the tag byte in Decode, rather
// than a runtime map. The Tag constants and declared part counts below
// double as the "registry" in the sense that every tag constant has exactly
// one owner, checked once in init.
package wire

import "github.com/mellonka/vipipe-go/internal/vperrors"

// Tag is the one-byte wire discriminator occupying part 0 of every frame.
type Tag byte

const (
	TagCaps        Tag = 0x01
	TagBuffer      Tag = 0x02
	TagBufferMeta  Tag = 0x03
	TagCustomMeta  Tag = 0x04
	TagEndOfStream Tag = 0x05
)

func (t Tag) String() string {
	switch t {
	case TagCaps:
		return "CAPS"
	case TagBuffer:
		return "BUFFER"
	case TagBufferMeta:
		return "BUFFER_META"
	case TagCustomMeta:
		return "CUSTOM_META"
	case TagEndOfStream:
		return "END_OF_STREAM"
	default:
		return "UNKNOWN"
	}
}

// Message is implemented by every wire variant.
type Message interface {
	// Tag returns the variant's one-byte wire discriminator.
	Tag() Tag
	// PartCount returns the declared part count for this variant.
	PartCount() int
}

// Caps declares stream capabilities.
type Caps struct {
	CapsStr   string
	Width     int
	Height    int
	Format    *string
	FpsN      *int
	FpsD      *int
	Framerate *string
}

func (Caps) Tag() Tag        { return TagCaps }
func (Caps) PartCount() int { return capsPartCount }

// BufferMeta is the per-buffer timing/size header.
type BufferMeta struct {
	PTS      uint64
	DTS      *uint64
	Duration *uint64
	Width    int
	Height   int
	Flags    int
	CapsStr  *string
}

func (BufferMeta) Tag() Tag        { return TagBufferMeta }
func (BufferMeta) PartCount() int { return bufferMetaPartCount }

// CustomMeta is opaque per-buffer application metadata.
type CustomMeta struct {
	// Body is the raw JSON object, preserved as decoded (unknown-field
	// tolerant).
	Body map[string]interface{}
}

func (CustomMeta) Tag() Tag        { return TagCustomMeta }
func (CustomMeta) PartCount() int { return customMetaPartCount }

// Buffer is the media payload plus optional embedded meta.
type Buffer struct {
	BufferMeta *BufferMeta
	CustomMeta *CustomMeta
	Payload    []byte
}

func (Buffer) Tag() Tag        { return TagBuffer }
func (Buffer) PartCount() int { return bufferPartCount }

// EndOfStream is the terminal in-band marker.
type EndOfStream struct{}

func (EndOfStream) Tag() Tag        { return TagEndOfStream }
func (EndOfStream) PartCount() int { return endOfStreamPartCount }

// Declared part counts: the registry's compile-time artifact. init panics
// via vperrors.InvalidState on a duplicate tag, matching "duplicate
// registration is a programming error surfaced at init" even though there
// is no runtime map to collide in.
const (
	capsPartCount        = 2
	bufferMetaPartCount  = 2
	customMetaPartCount  = 2
	bufferPartCount      = 6
	endOfStreamPartCount = 1
)

func init() {
	seen := make(map[Tag]bool, 5)
	for _, t := range []Tag{TagCaps, TagBuffer, TagBufferMeta, TagCustomMeta, TagEndOfStream} {
		if seen[t] {
			panic(&vperrors.InvalidState{Op: "wire.init", Err: duplicateTagError(t)})
		}
		seen[t] = true
	}
}

type duplicateTagError Tag

func (d duplicateTagError) Error() string {
	return "duplicate tag registration: " + Tag(d).String()
}
