package event

import (
	"fmt"
	"time"

	"github.com/roach88/akasha/internal/payload"
)

// Content keys used by commit events.
const (
	KeySummary  = "summary"
	KeyBody     = "body"
	KeySnapshot = "snapshot"
	KeyText     = "text"
)

// Well-known commit kinds. Kinds are free-form; this list only feeds prompts and docs.
var WellKnownKinds = []string{"feat", "fix", "refactor", "docs", "test", "chore"}

// Event is one immutable, checksummed record in a cube.
type Event struct {
	// ID is unique and strictly increasing within a cube, starting at 1.
	ID uint64 `json:"id"`

	// Parent is the id of the previous event in the cube, or 0 for the first event.
	Parent uint64 `json:"parent,omitempty"`

	// Kind classifies the event (the phenomenon): feat, fix, or any non-empty string.
	Kind string `json:"kind"`

	// Content is the structured payload (the noumenon).
	Content payload.Object `json:"content"`

	Author      string `json:"author"`
	AuthorEmail string `json:"author_email"`

	// Timestamp is the creation instant in UTC milliseconds since the epoch.
	Timestamp int64 `json:"timestamp"`

	// Checksum is the CRC32 of the persisted payload, filled in on encode and decode.
	Checksum uint32 `json:"checksum"`

	// Offset is the byte offset of the record in its cube. Set on replay only.
	Offset int64 `json:"offset"`

	// Legacy marks records decoded from the original v1 layout, which has no
	// parent field and no author.
	Legacy bool `json:"legacy,omitempty"`
}

// HasParent reports whether the event links to a predecessor.
func (e Event) HasParent() bool {
	return e.Parent != 0
}

// Time returns the timestamp as a UTC time.Time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// Summary returns the commit summary, or the first line of legacy text content.
func (e Event) Summary() string {
	if s := e.Content.GetString(KeySummary); s != "" {
		return s
	}
	return firstLine(e.Content.GetString(KeyText))
}

// Body returns the commit body.
func (e Event) Body() string {
	return e.Content.GetString(KeyBody)
}

// Snapshot returns the snapshot reference embedded by seal, if any.
func (e Event) Snapshot() (payload.Object, bool) {
	return e.Content.GetObject(KeySnapshot)
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return fmt.Sprintf("#%d [%s] %s", e.ID, e.Kind, e.Summary())
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
