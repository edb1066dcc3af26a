package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/payload"
)

// Query selects indexed events. Empty fields match everything.
type Query struct {
	Kind   string
	Author string
	Period string
	Since  time.Time
	Until  time.Time

	// Text matches summary or body, case-insensitively for ASCII.
	Text string

	// ContentHash matches events whose canonical content has this
	// fingerprint, e.g. the same commit recorded in two cubes.
	ContentHash string

	// Limit caps the result count; 0 means no limit.
	Limit int
}

// Row is one indexed event with its cube key.
type Row struct {
	Period string      `json:"period"`
	Author string      `json:"author"`
	Event  event.Event `json:"event"`

	// ContentHash is the content fingerprint (domain akasha/content/v1).
	ContentHash string `json:"content_hash"`
}

// Fault is a cube that could not be fully indexed.
type Fault struct {
	Period  string `json:"period"`
	Author  string `json:"author"`
	Code    string `json:"code"`
	Offset  int64  `json:"offset"`
	EventID uint64 `json:"event_id,omitempty"`
	Message string `json:"message"`
}

// Query returns matching events ordered by (timestamp, author, period, id).
func (ix *Index) Query(ctx context.Context, q Query) ([]Row, error) {
	var (
		where []string
		args  []any
	)
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, q.Kind)
	}
	if q.Author != "" {
		where = append(where, "author = ?")
		args = append(args, q.Author)
	}
	if q.Period != "" {
		where = append(where, "period = ?")
		args = append(args, q.Period)
	}
	if !q.Since.IsZero() {
		where = append(where, "timestamp_ms >= ?")
		args = append(args, q.Since.UnixMilli())
	}
	if !q.Until.IsZero() {
		where = append(where, "timestamp_ms < ?")
		args = append(args, q.Until.UnixMilli())
	}
	if q.Text != "" {
		where = append(where, `(summary LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`)
		like := "%" + likeEscaper.Replace(q.Text) + "%"
		args = append(args, like, like)
	}

	if q.ContentHash != "" {
		where = append(where, "content_hash = ?")
		args = append(args, q.ContentHash)
	}

	sqlText := `SELECT period, author, id, parent, kind, author_email, timestamp_ms,
		checksum, byte_offset, legacy, content, content_hash FROM events`
	if len(where) > 0 {
		sqlText += " WHERE " + strings.Join(where, " AND ")
	}
	sqlText += " ORDER BY timestamp_ms ASC, author ASC, period ASC, id ASC"
	if q.Limit > 0 {
		sqlText += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := ix.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r        Row
			id       int64
			parent   int64
			checksum int64
			content  string
		)
		if err := rows.Scan(&r.Period, &r.Author, &id, &parent, &r.Event.Kind, &r.Event.AuthorEmail,
			&r.Event.Timestamp, &checksum, &r.Event.Offset, &r.Event.Legacy, &content, &r.ContentHash); err != nil {
			return nil, fmt.Errorf("query index: scan: %w", err)
		}
		obj, err := payload.ParseObject([]byte(content))
		if err != nil {
			return nil, fmt.Errorf("query index: event %s/%s#%d: %w", r.Period, r.Author, id, err)
		}
		r.Event.ID = uint64(id)
		r.Event.Parent = uint64(parent)
		r.Event.Checksum = uint32(checksum)
		r.Event.Author = r.Author
		r.Event.Content = obj
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return out, nil
}

// likeEscaper makes LIKE wildcards in user text match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Faults lists the cubes that the last rebuild could not fully index.
func (ix *Index) Faults(ctx context.Context) ([]Fault, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT period, author, code, byte_offset, event_id, message
		FROM cube_faults ORDER BY period, author
	`)
	if err != nil {
		return nil, fmt.Errorf("list faults: %w", err)
	}
	defer rows.Close()

	var out []Fault
	for rows.Next() {
		var (
			f  Fault
			id int64
		)
		if err := rows.Scan(&f.Period, &f.Author, &f.Code, &f.Offset, &id, &f.Message); err != nil {
			return nil, fmt.Errorf("list faults: scan: %w", err)
		}
		f.EventID = uint64(id)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Count returns the number of indexed events.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
