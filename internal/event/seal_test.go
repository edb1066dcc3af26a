package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/akasha/internal/payload"
)

var alice = Identity{Author: "alice", Email: "alice@example.com"}

func TestSealFirstEvent(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	e, err := Seal(Draft{Kind: "feat", Summary: "a", Body: "first", Identity: alice}, 0, now)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), e.ID)
	assert.False(t, e.HasParent())
	assert.Equal(t, "feat", e.Kind)
	assert.Equal(t, "a", e.Summary())
	assert.Equal(t, "first", e.Body())
	assert.Equal(t, "alice", e.Author)
	assert.Equal(t, "alice@example.com", e.AuthorEmail)
	assert.Equal(t, now.UnixMilli(), e.Timestamp)
}

func TestSealLinksToLastID(t *testing.T) {
	e, err := Seal(Draft{Kind: "fix", Summary: "b", Identity: alice}, 7, time.Now())
	require.NoError(t, err)
	assert.Equal(t, uint64(8), e.ID)
	assert.Equal(t, uint64(7), e.Parent)
	assert.True(t, e.HasParent())
}

func TestSealUsesUTCMillis(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	now := time.Date(2026, 1, 1, 9, 0, 0, 123456789, loc)

	e, err := Seal(Draft{Kind: "chore", Identity: alice}, 0, now)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), e.Timestamp)
	assert.Equal(t, time.UTC, e.Time().Location())
	assert.True(t, e.Time().Equal(now.Truncate(time.Millisecond)))
}

func TestSealAcceptsFreeFormKind(t *testing.T) {
	e, err := Seal(Draft{Kind: "  perf-experiment ", Identity: alice}, 0, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "perf-experiment", e.Kind)
}

func TestSealRejects(t *testing.T) {
	_, err := Seal(Draft{Kind: " ", Identity: alice}, 0, time.Now())
	assert.ErrorIs(t, err, ErrEmptyKind)

	_, err = Seal(Draft{Kind: "feat"}, 0, time.Now())
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestSealKeepsExtraContent(t *testing.T) {
	extra := payload.Object{
		"summary": payload.String("from content"),
		"refs":    payload.Array{payload.String("cube:2026-09/bob")},
	}

	e, err := Seal(Draft{Kind: "docs", Content: extra, Identity: alice}, 0, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "from content", e.Summary())
	assert.Equal(t, "", e.Body())
	assert.Contains(t, e.Content, "refs")

	// The draft's content is not aliased.
	e.Content["refs"] = payload.Null{}
	assert.IsType(t, payload.Array{}, extra["refs"])
}

func TestSummaryFallsBackToLegacyText(t *testing.T) {
	e := Event{Content: payload.Object{KeyText: payload.String("feat add scanner\n\n\tbody")}}
	assert.Equal(t, "feat add scanner", e.Summary())
}
