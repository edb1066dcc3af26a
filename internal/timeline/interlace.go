package timeline

import (
	"cmp"
	"slices"

	"github.com/roach88/akasha/internal/cube"
	"github.com/roach88/akasha/internal/event"
)

// Entry is an event tagged with the cube it came from.
type Entry struct {
	Cube  cube.Ref    `json:"cube"`
	Event event.Event `json:"event"`
}

// Fault records a cube that could not be fully replayed.
type Fault struct {
	Cube cube.Ref `json:"cube"`
	Err  error    `json:"-"`

	// Kept is the number of events from the cube that precede the fault.
	Kept int `json:"kept"`
}

// Message returns the fault as text.
func (f Fault) Message() string {
	return f.Err.Error()
}

// Interlaced is a merged, globally ordered timeline.
type Interlaced struct {
	Entries []Entry `json:"entries"`
	Faults  []Fault `json:"faults,omitempty"`
}

// Interlace merges the filtered timelines of several cubes, ordered by
// (timestamp, author, period, id). A cube that fails is isolated: its events
// before the fault are kept, the fault is listed, and the other cubes are
// unaffected. Only an invalid filter fails the whole call.
func Interlace(cubes []*cube.Cube, f Filter) (Interlaced, error) {
	if _, err := f.Compile(); err != nil {
		return Interlaced{}, err
	}

	var out Interlaced
	for _, c := range cubes {
		kept := 0
		for ev, err := range Replay(c, f) {
			if err != nil {
				out.Faults = append(out.Faults, Fault{Cube: c.Ref(), Err: err, Kept: kept})
				break
			}
			out.Entries = append(out.Entries, Entry{Cube: c.Ref(), Event: ev})
			kept++
		}
	}

	slices.SortStableFunc(out.Entries, compareEntries)
	return out, nil
}

func compareEntries(a, b Entry) int {
	return cmp.Or(
		cmp.Compare(a.Event.Timestamp, b.Event.Timestamp),
		cmp.Compare(a.Event.Author, b.Event.Author),
		cmp.Compare(a.Cube.Period, b.Cube.Period),
		cmp.Compare(a.Event.ID, b.Event.ID),
	)
}

// Events returns the merged events without their cube tags.
func (i Interlaced) Events() []event.Event {
	out := make([]event.Event, len(i.Entries))
	for n, e := range i.Entries {
		out[n] = e.Event
	}
	return out
}
