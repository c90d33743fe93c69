package transport

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/mellonka/vipipe-go/internal/vperrors"
)

// On-the-wire transport framing: a uint32 part count, then for each part a
// uint32 length and the part bytes. This is the transport's own framing —
// distinct from, and carrying, the message codec's parts — grounded
// on cbor/io.go's 4-byte big-endian length prefix, generalized from one
// blob per frame to N parts per frame.
const maxPartBytes = 64 * 1024 * 1024 // hard ceiling against a corrupt length prefix

func writeMultipartFrame(w io.Writer, parts [][]byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(parts)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	for _, p := range parts {
		binary.BigEndian.PutUint32(hdr[:], uint32(len(p)))
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		if len(p) > 0 {
			if _, err := w.Write(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func readMultipartFrame(r io.Reader) ([][]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	count := binary.BigEndian.Uint32(hdr[:])
	if count > 1<<20 {
		return nil, &vperrors.TransportError{Op: "read_multipart", Err: corruptPartCountError{}}
	}
	parts := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, err
		}
		n := binary.BigEndian.Uint32(hdr[:])
		if n > maxPartBytes {
			return nil, &vperrors.TransportError{Op: "read_multipart", Err: corruptPartLengthError{}}
		}
		part := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(r, part); err != nil {
				return nil, err
			}
		}
		parts = append(parts, part)
	}
	return parts, nil
}

type corruptPartCountError struct{}

func (corruptPartCountError) Error() string { return "corrupt frame: implausible part count" }

type corruptPartLengthError struct{}

func (corruptPartLengthError) Error() string { return "corrupt frame: implausible part length" }

// isClosedConnErr reports whether err is the expected result of closing a
// net.Conn out from under a blocked Read/Write, which read/write loops treat
// as a clean shutdown rather than a TransportError.
func isClosedConnErr(err error) bool {
	if err == nil {
		return false
	}
	if err == io.EOF {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "use of closed network connection") || strings.Contains(s, "closed pipe")
}
