package repo

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/akasha/internal/cube"
	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/payload"
	"github.com/roach88/akasha/internal/record"
	"github.com/roach88/akasha/internal/snapshot"
)

// SealOptions controls Seal.
type SealOptions struct {
	// Repair truncates a trailing fragment before appending. Without it a
	// fragment makes Seal fail with TRUNCATED_TAIL. Config.AutoRepair has
	// the same effect.
	Repair bool

	// Snapshot inscribes the working tree and references it from the
	// event content under "snapshot".
	Snapshot bool
}

// SealResult describes a sealed event.
type SealResult struct {
	Event    event.Event        `json:"event"`
	Cube     cube.Ref           `json:"cube"`
	Append   cube.AppendResult  `json:"append"`
	Repair   *cube.RepairResult `json:"repair,omitempty"`
	Snapshot *snapshot.Snapshot `json:"-"`
}

// Seal records a new event in the current cube of the repository's author.
// When a snapshot is requested it is saved only after the event is on disk.
func (r *Repository) Seal(d event.Draft, opts SealOptions) (SealResult, error) {
	if d.Identity == (event.Identity{}) {
		d.Identity = r.Identity
	}
	if err := d.Identity.Validate(); err != nil {
		return SealResult{}, fmt.Errorf("seal: %w", err)
	}
	now := r.Clock.Now()

	var snap *snapshot.Snapshot
	if opts.Snapshot {
		s, err := r.inscribe(d.Identity.Author, now)
		if err != nil {
			return SealResult{}, fmt.Errorf("seal: %w", err)
		}
		snap = &s
		d.Content = d.Content.Clone()
		if d.Content == nil {
			d.Content = payload.Object{}
		}
		d.Content[event.KeySnapshot] = s.Ref()
	}

	res, err := r.appendAt(event.PeriodOf(now), d, now, opts.Repair || r.Config.AutoRepair)
	if err != nil {
		return res, err
	}

	if snap != nil {
		if err := snap.Save(r.Layout); err != nil {
			return res, fmt.Errorf("seal: event %d recorded but snapshot not saved: %w", res.Event.ID, err)
		}
		res.Snapshot = snap
	}
	return res, nil
}

// AppendEvent seals d into the cube for (period, author) at the clock's
// current time. d.Identity defaults to author with the repository email.
func (r *Repository) AppendEvent(period event.Period, author string, d event.Draft) (event.Event, error) {
	if d.Identity == (event.Identity{}) {
		d.Identity = event.Identity{Author: author, Email: r.Identity.Email}
	}
	if d.Identity.Author != author {
		return event.Event{}, fmt.Errorf("append: draft author %q does not own cube %s/%s", d.Identity.Author, period, author)
	}
	res, err := r.appendAt(period, d, r.Clock.Now(), r.Config.AutoRepair)
	if err != nil {
		return event.Event{}, err
	}
	return res.Event, nil
}

// appendAt runs lock, scan, seal, encode and append for one cube.
func (r *Repository) appendAt(period event.Period, d event.Draft, now time.Time, repair bool) (SealResult, error) {
	c, err := cube.Open(r.Layout, period, d.Identity.Author, cube.WithLogger(r.logger))
	if err != nil {
		return SealResult{}, err
	}
	res := SealResult{Cube: c.Ref()}

	unlock, err := c.Lock()
	if err != nil {
		return res, err
	}
	defer func() {
		if err := unlock(); err != nil {
			r.logger.Warn("unlock failed", slog.String("cube", c.Ref().Key()), slog.Any("error", err))
		}
	}()

	pos, err := c.Position()
	if err != nil {
		return res, err
	}
	if pos.Tail != nil {
		if !repair {
			return res, pos.Tail.Err(c.Path())
		}
		rep, err := c.Repair()
		if err != nil {
			return res, err
		}
		res.Repair = &rep
		pos.End = rep.Offset
		pos.Tail = nil
	}

	ev, err := event.Seal(d, pos.LastID, now)
	if err != nil {
		return res, fmt.Errorf("seal: %w", err)
	}
	frame, err := record.Encode(ev)
	if err != nil {
		return res, fmt.Errorf("seal: %w", err)
	}
	app, err := c.Append(frame, pos.End)
	if err != nil {
		return res, err
	}

	ev.Offset = app.Offset
	ev.Checksum = frame.Checksum()
	res.Event = ev
	res.Append = app

	r.logger.Debug("event sealed",
		slog.String("cube", c.Ref().Key()),
		slog.Uint64("id", ev.ID),
		slog.String("kind", ev.Kind),
		slog.Int64("offset", app.Offset))
	return res, nil
}
