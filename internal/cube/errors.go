package cube

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a cube file does not exist. Readers treat it as
// an empty history; it only surfaces from operations that need the file.
var ErrNotFound = errors.New("cube not found")

// Code categorizes cube errors.
type Code string

const (
	// CodeTruncatedTail marks an incomplete final frame left by an interrupted append.
	CodeTruncatedTail Code = "TRUNCATED_TAIL"

	// CodeCorruptRecord marks a frame that fails its checksum or structure
	// while valid data follows it, or a CRC-valid frame that does not decode.
	CodeCorruptRecord Code = "CORRUPT_RECORD"

	// CodeChainBreak marks an event whose parent is not the previous event's id.
	CodeChainBreak Code = "CHAIN_BREAK"

	// CodeConcurrentWrite marks a lost race with another writer on the same cube.
	CodeConcurrentWrite Code = "CONCURRENT_WRITE"
)

// Error is a cube fault with enough context to find the bytes involved.
type Error struct {
	Code Code

	// Path is the cube file.
	Path string

	// Offset is the byte offset of the offending frame, or -1 when not applicable.
	Offset int64

	// ID is the event id involved, when known.
	ID uint64

	Message string

	// Err is the underlying decode or I/O error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += " (" + e.Path
		if e.Offset >= 0 {
			msg += fmt.Sprintf(" @%d", e.Offset)
		}
		if e.ID != 0 {
			msg += fmt.Sprintf(" id=%d", e.ID)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// MarshalJSON renders the error for reports.
func (e *Error) MarshalJSON() ([]byte, error) {
	type view struct {
		Code    Code   `json:"code"`
		Path    string `json:"path,omitempty"`
		Offset  int64  `json:"offset"`
		ID      uint64 `json:"id,omitempty"`
		Message string `json:"message"`
		Cause   string `json:"cause,omitempty"`
	}
	v := view{Code: e.Code, Path: e.Path, Offset: e.Offset, ID: e.ID, Message: e.Message}
	if e.Err != nil {
		v.Cause = e.Err.Error()
	}
	return json.Marshal(v)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

// IsCorruption reports whether err is a fatal integrity fault: a corrupt
// record or a chain break.
func IsCorruption(err error) bool {
	code, ok := CodeOf(err)
	return ok && (code == CodeCorruptRecord || code == CodeChainBreak)
}

// IsChainBreak reports whether err is a parent chain violation.
func IsChainBreak(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeChainBreak
}

// IsTruncatedTail reports whether err refers to an incomplete trailing frame.
func IsTruncatedTail(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeTruncatedTail
}

// IsRetryable reports whether the operation may succeed if simply retried.
func IsRetryable(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeConcurrentWrite
}

func corruptAt(path string, offset int64, err error) *Error {
	return &Error{
		Code:    CodeCorruptRecord,
		Path:    path,
		Offset:  offset,
		Message: "corrupt record",
		Err:     err,
	}
}
