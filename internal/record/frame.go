package record

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

const (
	// LengthSize is the size of the frame length prefix.
	LengthSize = 4
	// ChecksumSize is the size of the trailing CRC.
	ChecksumSize = 4

	// MaxFrameLength bounds LENGTH. Larger values can only come from corruption.
	MaxFrameLength = 16 << 20
)

// Frame is one length-prefixed, checksummed record as it sits on disk.
type Frame []byte

// Payload returns the bytes between the length prefix and the checksum.
// It assumes the frame has passed VerifyFrame.
func (f Frame) Payload() []byte {
	return f[LengthSize : len(f)-ChecksumSize]
}

// Checksum returns the stored CRC.
func (f Frame) Checksum() uint32 {
	return binary.LittleEndian.Uint32(f[len(f)-ChecksumSize:])
}

// FrameLength decodes a length prefix and returns the full frame size
// (prefix included). minPayload is the smallest payload the cube's version allows.
func FrameLength(prefix []byte, minPayload int) (int, error) {
	if len(prefix) < LengthSize {
		return 0, fmt.Errorf("%w: length prefix has %d of %d bytes", ErrTruncated, len(prefix), LengthSize)
	}
	n := binary.LittleEndian.Uint32(prefix[:LengthSize])
	if n < uint32(minPayload+ChecksumSize) {
		return 0, fmt.Errorf("%w: frame length %d below minimum %d", ErrInvalid, n, minPayload+ChecksumSize)
	}
	if n > MaxFrameLength {
		return 0, fmt.Errorf("%w: frame length %d above maximum %d", ErrInvalid, n, MaxFrameLength)
	}
	return LengthSize + int(n), nil
}

// DeclaredSize returns the full frame size a length prefix claims, without
// checking it against any bound. prefix must hold LengthSize bytes.
func DeclaredSize(prefix []byte) int64 {
	return LengthSize + int64(binary.LittleEndian.Uint32(prefix[:LengthSize]))
}

// MinFrame returns the size of the smallest complete frame for version.
func MinFrame(version uint16) int {
	return LengthSize + MinPayload(version) + ChecksumSize
}

// VerifyFrame checks framing and CRC without decoding fields.
func VerifyFrame(f []byte, version uint16) error {
	total, err := FrameLength(f, MinPayload(version))
	if err != nil {
		return err
	}
	if len(f) < total {
		return fmt.Errorf("%w: frame has %d of %d bytes", ErrTruncated, len(f), total)
	}
	if len(f) > total {
		return fmt.Errorf("%w: %d bytes after frame end", ErrInvalid, len(f)-total)
	}
	fr := Frame(f)
	if got, want := crc32.ChecksumIEEE(fr.Payload()), fr.Checksum(); got != want {
		return fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksum, want, got)
	}
	return nil
}

// MinPayload returns the fixed-field size of a payload for the given version.
func MinPayload(version uint16) int {
	if version == VersionLegacy {
		return legacyFixedSize
	}
	return fixedSize
}

func seal(payload []byte) Frame {
	out := make([]byte, LengthSize+len(payload)+ChecksumSize)
	binary.LittleEndian.PutUint32(out[0:LengthSize], uint32(len(payload)+ChecksumSize))
	copy(out[LengthSize:], payload)
	binary.LittleEndian.PutUint32(out[LengthSize+len(payload):], crc32.ChecksumIEEE(payload))
	return out
}
