package timeline

import (
	"iter"

	"github.com/roach88/akasha/internal/cube"
	"github.com/roach88/akasha/internal/event"
)

// Replay yields the cube's events in append order, filtered by f.
//
// Iteration is lazy: stopping early closes the file. A missing cube yields
// nothing. A trailing fragment ends the sequence quietly. Corruption or a
// chain break is yielded as a single error after the events that precede it,
// and ends the sequence.
func Replay(c *cube.Cube, f Filter) iter.Seq2[event.Event, error] {
	return func(yield func(event.Event, error) bool) {
		m, err := f.Compile()
		if err != nil {
			yield(event.Event{}, err)
			return
		}

		s, err := c.Scan()
		if err != nil {
			yield(event.Event{}, err)
			return
		}
		defer s.Close()

		chain := cube.NewChain(c.Path())
		for s.Next() {
			ev, err := s.Event()
			if err == nil {
				err = chain.Check(ev)
			}
			if err != nil {
				yield(event.Event{}, err)
				return
			}

			ok, err := m.Match(ev)
			if err != nil {
				yield(event.Event{}, err)
				return
			}
			if ok && !yield(ev, nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(event.Event{}, err)
		}
	}
}

// Collect drains a sequence. On error it returns the events read so far.
func Collect(seq iter.Seq2[event.Event, error]) ([]event.Event, error) {
	var out []event.Event
	for ev, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// Latest returns the last event of the cube. The whole cube is validated.
func Latest(c *cube.Cube) (event.Event, bool, error) {
	var (
		last  event.Event
		found bool
	)
	for ev, err := range Replay(c, Filter{}) {
		if err != nil {
			return event.Event{}, false, err
		}
		last, found = ev, true
	}
	return last, found, nil
}

// First returns the first event of the cube.
func First(c *cube.Cube) (event.Event, bool, error) {
	for ev, err := range Replay(c, Filter{}) {
		if err != nil {
			return event.Event{}, false, err
		}
		return ev, true, nil
	}
	return event.Event{}, false, nil
}

// Find returns the event with the given id.
func Find(c *cube.Cube, id uint64) (event.Event, bool, error) {
	for ev, err := range Replay(c, Filter{}) {
		if err != nil {
			return event.Event{}, false, err
		}
		if ev.ID == id {
			return ev, true, nil
		}
		if ev.ID > id {
			break
		}
	}
	return event.Event{}, false, nil
}
