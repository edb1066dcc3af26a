package record

import "errors"

// Decode failures. Every error returned by this package wraps exactly one of these.
var (
	// ErrTruncated means the bytes end before the record does. At the end of a
	// cube this is the signature of an interrupted append.
	ErrTruncated = errors.New("record truncated")

	// ErrInvalid means the bytes are structurally malformed.
	ErrInvalid = errors.New("record invalid")

	// ErrChecksum means the stored CRC does not match the payload.
	ErrChecksum = errors.New("record checksum mismatch")
)

// IsCorrupt reports whether err is a checksum or structural failure rather than truncation.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrInvalid) || errors.Is(err, ErrChecksum)
}
