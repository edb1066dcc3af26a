package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the fixed size of the cube file header.
	HeaderSize = 16

	// VersionLegacy is the layout written by the original tool.
	VersionLegacy uint16 = 1
	// VersionCurrent is the layout this package writes.
	VersionCurrent uint16 = 2
)

// Magic identifies a cube file.
var Magic = [4]byte{'A', 'K', 'L', 'A'}

// Header is the decoded file header.
type Header struct {
	Version uint16
}

// EncodeHeader returns the header for a new cube.
func EncodeHeader() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], VersionCurrent)
	return buf
}

// ParseHeader decodes a header. A short buffer that is still a prefix of a valid
// header reports ErrTruncated; anything else that does not parse is ErrInvalid.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		n := min(len(b), len(Magic))
		if !bytes.Equal(b[:n], Magic[:n]) {
			return Header{}, fmt.Errorf("%w: bad magic", ErrInvalid)
		}
		return Header{}, fmt.Errorf("%w: header has %d of %d bytes", ErrTruncated, len(b), HeaderSize)
	}
	if !bytes.Equal(b[0:4], Magic[:]) {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrInvalid, b[0:4])
	}

	h := Header{Version: binary.LittleEndian.Uint16(b[4:6])}
	switch h.Version {
	case VersionLegacy, VersionCurrent:
		return h, nil
	default:
		return Header{}, fmt.Errorf("%w: unsupported cube version %d", ErrInvalid, h.Version)
	}
}
