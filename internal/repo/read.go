package repo

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/roach88/akasha/internal/cube"
	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/timeline"
)

// Replay yields the events of (period, author) that match f, in file order.
// A bad key is yielded as the only error.
func (r *Repository) Replay(period, author string, f timeline.Filter) iter.Seq2[event.Event, error] {
	c, err := r.Cube(period, author)
	if err != nil {
		return func(yield func(event.Event, error) bool) {
			yield(event.Event{}, err)
		}
	}
	return timeline.Replay(c, f)
}

// Latest returns the last valid event of (period, author).
func (r *Repository) Latest(period, author string) (event.Event, bool, error) {
	c, err := r.Cube(period, author)
	if err != nil {
		return event.Event{}, false, err
	}
	return timeline.Latest(c)
}

// First returns the root event of (period, author).
func (r *Repository) First(period, author string) (event.Event, bool, error) {
	c, err := r.Cube(period, author)
	if err != nil {
		return event.Event{}, false, err
	}
	return timeline.First(c)
}

// Find returns the event with the given id.
func (r *Repository) Find(period, author string, id uint64) (event.Event, error) {
	c, err := r.Cube(period, author)
	if err != nil {
		return event.Event{}, err
	}
	ev, ok, err := timeline.Find(c, id)
	if err != nil {
		return event.Event{}, err
	}
	if !ok {
		return event.Event{}, fmt.Errorf("event %d in %s: %w", id, c.Ref().Key(), cube.ErrNotFound)
	}
	return ev, nil
}

// LastValidID returns the id the next sealed event of (period, author)
// would link to.
func (r *Repository) LastValidID(period, author string) (uint64, error) {
	c, err := r.Cube(period, author)
	if err != nil {
		return 0, err
	}
	return c.LastValidID()
}

// Verify scans one cube end to end.
func (r *Repository) Verify(period, author string) (cube.Report, error) {
	c, err := r.Cube(period, author)
	if err != nil {
		return cube.Report{}, err
	}
	return c.Verify()
}

// VerifyAll verifies every cube. A fault in one cube is recorded in its
// report and does not stop the others; only I/O failures abort.
func (r *Repository) VerifyAll() ([]cube.Report, error) {
	cubes, err := r.Cubes("")
	if err != nil {
		return nil, err
	}
	reports := make([]cube.Report, 0, len(cubes))
	for _, c := range cubes {
		rep, err := c.Verify()
		if err != nil {
			return reports, err
		}
		if !rep.OK() {
			r.logger.Warn("cube failed verification", slog.String("cube", c.Ref().Key()))
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// Repair takes the cube's lock and truncates a trailing fragment.
func (r *Repository) Repair(period, author string) (cube.RepairResult, error) {
	c, err := r.Cube(period, author)
	if err != nil {
		return cube.RepairResult{}, err
	}
	if c.Ref().Legacy {
		return cube.RepairResult{Cube: c.Ref()}, errors.New("repair: legacy cubes are read-only")
	}
	unlock, err := c.Lock()
	if err != nil {
		return cube.RepairResult{Cube: c.Ref()}, err
	}
	defer func() {
		if err := unlock(); err != nil {
			r.logger.Warn("unlock failed", slog.String("cube", c.Ref().Key()), slog.Any("error", err))
		}
	}()
	return c.Repair()
}

// Interlace merges every cube of period by timestamp. An empty period
// merges all cubes.
func (r *Repository) Interlace(period string, f timeline.Filter) (timeline.Interlaced, error) {
	cubes, err := r.Cubes(period)
	if err != nil {
		return timeline.Interlaced{}, err
	}
	return timeline.Interlace(cubes, f)
}
