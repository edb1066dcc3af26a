package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/akasha/internal/cube"
	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/payload"
	"github.com/roach88/akasha/internal/timeline"
)

// Stats summarizes a rebuild.
type Stats struct {
	Cubes  int `json:"cubes"`
	Events int `json:"events"`
	Faults int `json:"faults"`
}

// Rebuild replaces the index contents with a full replay of every cube in the
// layout, in one transaction. A cube that fails part way keeps the events
// before the fault and gets a row in cube_faults; other cubes are unaffected.
func (ix *Index) Rebuild(ctx context.Context, l cube.Layout) (Stats, error) {
	refs, err := l.ListCubes()
	if err != nil {
		return Stats{}, fmt.Errorf("rebuild: %w", err)
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"events", "cube_faults", "cubes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return Stats{}, fmt.Errorf("rebuild: clear %s: %w", table, err)
		}
	}

	insertEvent, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(period, author, id, parent, kind, summary, body, author_email,
		 timestamp_ms, checksum, byte_offset, legacy, content, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("rebuild: %w", err)
	}
	defer insertEvent.Close()

	var stats Stats
	now := time.Now().UnixMilli()
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		c := cube.OpenRef(ref, cube.WithLogger(ix.logger))

		rep, err := c.Verify()
		if err != nil {
			return Stats{}, fmt.Errorf("rebuild %s: %w", ref.Key(), err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cubes (period, author, path, version, records, valid_end, indexed_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, ref.Period, ref.Author, ref.Path, rep.Version, rep.Records, rep.ValidEnd, now); err != nil {
			return Stats{}, fmt.Errorf("rebuild %s: %w", ref.Key(), err)
		}

		n := 0
		for ev, err := range timeline.Replay(c, timeline.Filter{}) {
			if err != nil {
				if err := recordFault(ctx, tx, ref, err); err != nil {
					return Stats{}, err
				}
				stats.Faults++
				ix.logger.Warn("cube indexed partially",
					slog.String("cube", ref.Key()),
					slog.Int("events", n),
					slog.String("error", err.Error()))
				break
			}
			if err := insert(ctx, insertEvent, ref, ev); err != nil {
				return Stats{}, fmt.Errorf("rebuild %s: %w", ref.Key(), err)
			}
			n++
		}
		stats.Cubes++
		stats.Events += n
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("rebuild: commit: %w", err)
	}
	ix.logger.Info("index rebuilt",
		slog.Int("cubes", stats.Cubes),
		slog.Int("events", stats.Events),
		slog.Int("faults", stats.Faults))
	return stats, nil
}

func insert(ctx context.Context, stmt *sql.Stmt, ref cube.Ref, ev event.Event) error {
	content, err := payload.MarshalCanonical(ev.Content)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx,
		ref.Period,
		ref.Author,
		int64(ev.ID),
		int64(ev.Parent),
		ev.Kind,
		ev.Summary(),
		ev.Body(),
		ev.AuthorEmail,
		ev.Timestamp,
		int64(ev.Checksum),
		ev.Offset,
		ev.Legacy,
		string(content),
		payload.Fingerprint(payload.DomainContent, content),
	)
	return err
}

func recordFault(ctx context.Context, tx *sql.Tx, ref cube.Ref, fault error) error {
	var (
		code   = "IO_ERROR"
		offset int64
		id     uint64
	)
	var ce *cube.Error
	if errors.As(fault, &ce) {
		code, offset, id = string(ce.Code), ce.Offset, ce.ID
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cube_faults (period, author, code, byte_offset, event_id, message)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ref.Period, ref.Author, code, offset, int64(id), fault.Error())
	if err != nil {
		return fmt.Errorf("rebuild %s: record fault: %w", ref.Key(), err)
	}
	return nil
}
