package cube

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/metrics"
)

// Chain checks parent links in append order.
//
// Each event must name the previous event as its parent, and the first event
// must have none. Legacy events carry no parent, so for them only strictly
// increasing ids are required.
type Chain struct {
	path string
	last uint64
	seen bool
}

// NewChain starts a chain check for the cube at path.
func NewChain(path string) *Chain {
	return &Chain{path: path}
}

// Check validates ev against the events before it and advances the chain.
func (c *Chain) Check(ev event.Event) error {
	var msg string
	switch {
	case ev.Legacy:
		if c.seen && ev.ID <= c.last {
			msg = fmt.Sprintf("id %d does not follow %d", ev.ID, c.last)
		}
	case !c.seen && ev.HasParent():
		msg = fmt.Sprintf("first event names parent %d", ev.Parent)
	case c.seen && ev.Parent != c.last:
		msg = fmt.Sprintf("parent %d, previous event is %d", ev.Parent, c.last)
	}
	if msg != "" {
		metrics.Corruption(string(CodeChainBreak))
		return &Error{Code: CodeChainBreak, Path: c.path, Offset: ev.Offset, ID: ev.ID, Message: msg}
	}
	c.last = ev.ID
	c.seen = true
	return nil
}

// Last returns the id of the last accepted event, or 0.
func (c *Chain) Last() uint64 {
	return c.last
}

// Position is the state a writer needs before appending.
type Position struct {
	// LastID is the id of the last valid event, 0 for an empty cube.
	LastID uint64

	// End is the byte offset after the last valid frame.
	End int64

	// Tail is the trailing fragment, if any.
	Tail *Tail

	// Legacy is true for read-only legacy cubes.
	Legacy bool
}

// Position scans the whole cube, decoding and chain-checking every record, and
// returns where the next append belongs. Corruption anywhere is an error;
// a trailing fragment is reported in the result.
func (c *Cube) Position() (Position, error) {
	s, err := c.Scan()
	if err != nil {
		return Position{}, err
	}
	defer s.Close()

	chain := NewChain(c.ref.Path)
	for s.Next() {
		ev, err := s.Event()
		if err != nil {
			return Position{}, err
		}
		if err := chain.Check(ev); err != nil {
			return Position{}, err
		}
	}
	if err := s.Err(); err != nil {
		return Position{}, err
	}
	return Position{LastID: chain.Last(), End: s.ValidEnd(), Tail: s.Tail(), Legacy: s.Legacy()}, nil
}

// LastValidID returns the id of the last valid event, or 0 for an empty or
// missing cube. A trailing fragment is ignored.
func (c *Cube) LastValidID() (uint64, error) {
	pos, err := c.Position()
	if err != nil {
		return 0, err
	}
	return pos.LastID, nil
}

// Report summarizes a full verification pass.
type Report struct {
	Cube     Ref    `json:"cube"`
	Version  uint16 `json:"version"`
	Records  int    `json:"records"`
	LastID   uint64 `json:"last_id"`
	Size     int64  `json:"size"`
	ValidEnd int64  `json:"valid_end"`
	Tail     *Tail  `json:"tail,omitempty"`
	Fault    *Error `json:"fault,omitempty"`
}

// OK reports whether the cube is fully intact.
func (r Report) OK() bool {
	return r.Fault == nil && r.Tail == nil
}

// Verify reads the entire cube and reports its health. Integrity faults are
// reported in the Report; the error is reserved for I/O failures.
func (c *Cube) Verify() (Report, error) {
	rep := Report{Cube: c.ref}

	s, err := c.Scan()
	if err != nil {
		if !errors.As(err, &rep.Fault) {
			return rep, err
		}
		return rep, nil
	}
	defer s.Close()

	rep.Version = s.Version()
	rep.Size = s.Size()
	chain := NewChain(c.ref.Path)
	for s.Next() {
		ev, err := s.Event()
		if err == nil {
			err = chain.Check(ev)
		}
		if err != nil {
			if !errors.As(err, &rep.Fault) {
				return rep, err
			}
			break
		}
		rep.Records++
		rep.LastID = ev.ID
	}
	if err := s.Err(); err != nil && !errors.As(err, &rep.Fault) {
		return rep, err
	}
	rep.ValidEnd = s.ValidEnd()
	rep.Tail = s.Tail()
	return rep, nil
}

// RepairResult describes a repair.
type RepairResult struct {
	Cube Ref `json:"cube"`

	// Truncated is false when there was nothing to repair.
	Truncated bool `json:"truncated"`

	// Offset is the new file size.
	Offset int64 `json:"offset"`

	// Removed is the number of fragment bytes dropped.
	Removed int64 `json:"removed"`
}

// Repair truncates an incomplete trailing frame. It never touches valid
// records and refuses to run when the cube has a fault before its end.
// Callers must hold the cube lock.
func (c *Cube) Repair() (RepairResult, error) {
	res := RepairResult{Cube: c.ref}

	pos, err := c.Position()
	if err != nil {
		return res, err
	}
	if pos.Tail == nil {
		res.Offset = pos.End
		return res, nil
	}

	if err := truncate(c.ref.Path, pos.Tail.Offset); err != nil {
		return res, fmt.Errorf("repair: %w", err)
	}
	metrics.Repaired()
	c.logger.Warn("trailing fragment removed",
		slog.String("cube", c.ref.Key()),
		slog.Int64("offset", pos.Tail.Offset),
		slog.Int64("bytes", pos.Tail.Size))

	res.Truncated = true
	res.Offset = pos.Tail.Offset
	res.Removed = pos.Tail.Size
	return res, nil
}
