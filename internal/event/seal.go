package event

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/akasha/internal/payload"
)

var (
	// ErrEmptyKind is returned when a draft has no classification.
	ErrEmptyKind = errors.New("event kind must not be empty")

	// ErrNoIdentity is returned when a draft has no author.
	ErrNoIdentity = errors.New("event author must not be empty")
)

// Draft is the caller-supplied part of a new event.
type Draft struct {
	Kind    string
	Summary string
	Body    string

	// Content carries extra payload keys. Summary and Body overwrite the
	// matching keys when non-empty.
	Content payload.Object

	Identity Identity
}

// Seal builds the next event of a cube whose last valid id is lastID.
// The caller must hold the cube's write lock between reading lastID and
// appending the result.
func Seal(d Draft, lastID uint64, now time.Time) (Event, error) {
	kind := strings.TrimSpace(d.Kind)
	if kind == "" {
		return Event{}, ErrEmptyKind
	}
	if d.Identity.Author == "" {
		return Event{}, ErrNoIdentity
	}
	if lastID == ^uint64(0) {
		return Event{}, fmt.Errorf("seal: id space exhausted after %d", lastID)
	}

	content := d.Content.Clone()
	if content == nil {
		content = payload.Object{}
	}
	if d.Summary != "" || content[KeySummary] == nil {
		content[KeySummary] = payload.String(d.Summary)
	}
	if d.Body != "" || content[KeyBody] == nil {
		content[KeyBody] = payload.String(d.Body)
	}

	return Event{
		ID:          lastID + 1,
		Parent:      lastID,
		Kind:        kind,
		Content:     content,
		Author:      d.Identity.Author,
		AuthorEmail: d.Identity.Email,
		Timestamp:   now.UTC().UnixMilli(),
	}, nil
}
