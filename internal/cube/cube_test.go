package cube

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/record"
	"github.com/roach88/akasha/internal/testutil"
)

const period = event.Period("2026-10")

func newCube(t *testing.T) (*Cube, Layout) {
	t.Helper()
	l := NewLayout(t.TempDir(), "")
	c, err := Open(l, period, "alice")
	require.NoError(t, err)
	return c, l
}

func threeCommits(t *testing.T) []event.Event {
	return testutil.Chain(t, testutil.Alice, testutil.NewDeterministicClock(),
		testutil.Commit{Kind: "feat", Summary: "a", Body: "first"},
		testutil.Commit{Kind: "fix", Summary: "b", Body: "second"},
		testutil.Commit{Kind: "docs", Summary: "c", Body: "third"},
	)
}

func scanAll(t *testing.T, c *Cube) ([]event.Event, *Scanner) {
	t.Helper()
	s, err := c.Scan()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var out []event.Event
	for s.Next() {
		ev, err := s.Event()
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out, s
}

func TestOpenValidatesKey(t *testing.T) {
	l := NewLayout(t.TempDir(), "")

	_, err := Open(l, "2026-13", "alice")
	assert.Error(t, err)
	_, err = Open(l, period, "")
	assert.ErrorIs(t, err, event.ErrNoIdentity)
	_, err = Open(l, period, "../bob")
	assert.Error(t, err)

	c, err := Open(l, period, "alice")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.Root, "cubes", "2026-10", "alice.cube"), c.Path())

	exists, err := c.Exists()
	require.NoError(t, err)
	assert.False(t, exists, "Open must not create the file")
}

func TestMissingCubeIsEmptyHistory(t *testing.T) {
	c, _ := newCube(t)

	events, s := scanAll(t, c)
	assert.Empty(t, events)
	assert.NoError(t, s.Err())
	assert.Nil(t, s.Tail())

	id, err := c.LastValidID()
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = c.Size()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendAndScan(t *testing.T) {
	c, _ := newCube(t)
	events := threeCommits(t)

	for i, ev := range events {
		pos, err := c.Position()
		require.NoError(t, err)
		assert.Equal(t, uint64(i), pos.LastID)

		f, err := record.Encode(ev)
		require.NoError(t, err)
		res, err := c.Append(f, pos.End)
		require.NoError(t, err)
		assert.Equal(t, i == 0, res.Created)
		if i == 0 {
			assert.Equal(t, int64(record.HeaderSize), res.Offset)
		}
	}

	got, s := scanAll(t, c)
	require.NoError(t, s.Err())
	require.Len(t, got, 3)
	for i := range events {
		assert.Equal(t, events[i].ID, got[i].ID)
		assert.Equal(t, events[i].Parent, got[i].Parent)
		assert.Equal(t, events[i].Kind, got[i].Kind)
		assert.Equal(t, events[i].Content, got[i].Content)
		assert.Equal(t, events[i].Timestamp, got[i].Timestamp)
	}
	assert.Equal(t, int64(record.HeaderSize), got[0].Offset)

	id, err := c.LastValidID()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
}

func TestAppendRefusesStaleEnd(t *testing.T) {
	c, _ := newCube(t)
	events := threeCommits(t)
	testutil.WriteCube(t, c.Path(), testutil.CubeBytes(t, events[0]))

	f, err := record.Encode(events[1])
	require.NoError(t, err)

	_, err = c.Append(f, 0)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))

	size, err := c.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len(testutil.CubeBytes(t, events[0]))), size, "refused append must not write")
}

func TestTruncatedFinalFrameIsTail(t *testing.T) {
	c, _ := newCube(t)
	events := threeCommits(t)
	full := testutil.CubeBytes(t, events...)
	frames := testutil.Frames(t, events...)
	lastStart := int64(len(full) - len(frames[2]))

	for _, cut := range []int{1, 3, 7, len(frames[2]) - 1} {
		testutil.WriteCube(t, c.Path(), full[:lastStart+int64(cut)])

		got, s := scanAll(t, c)
		require.NoError(t, s.Err(), "cut %d", cut)
		assert.Len(t, got, 2)
		require.NotNil(t, s.Tail())
		assert.Equal(t, lastStart, s.Tail().Offset)
		assert.Equal(t, int64(cut), s.Tail().Size)
		assert.Equal(t, lastStart, s.ValidEnd())

		id, err := c.LastValidID()
		require.NoError(t, err)
		assert.Equal(t, uint64(2), id)
	}
}

func TestChecksumMismatchOnFinalFrameIsTail(t *testing.T) {
	c, _ := newCube(t)
	events := threeCommits(t)
	data := testutil.CubeBytes(t, events...)
	data[len(data)-1] ^= 0xff
	testutil.WriteCube(t, c.Path(), data)

	got, s := scanAll(t, c)
	require.NoError(t, s.Err())
	assert.Len(t, got, 2)
	require.NotNil(t, s.Tail())
	assert.ErrorIs(t, s.Tail().Reason, record.ErrChecksum)
}

func TestShortTrailingGarbageIsTail(t *testing.T) {
	events := threeCommits(t)
	full := testutil.CubeBytes(t, events...)

	tests := []struct {
		name string
		tail []byte
	}{
		{"zero filled", make([]byte, 8)},
		{"length prefix below minimum", []byte{0x05, 0x00, 0x00, 0x00, 0x01}},
		{"one byte", []byte{0xff}},
		{"zero filled past a full frame", make([]byte, 200)},
		{"oversized length prefix", append([]byte{0xff, 0xff, 0xff, 0x7f}, bytes.Repeat([]byte{0xaa}, 60)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newCube(t)
			testutil.WriteCube(t, c.Path(), append(append([]byte(nil), full...), tt.tail...))

			got, s := scanAll(t, c)
			require.NoError(t, s.Err())
			assert.Len(t, got, 3)
			require.NotNil(t, s.Tail())
			assert.Equal(t, int64(len(full)), s.Tail().Offset)
			assert.Equal(t, int64(len(tt.tail)), s.Tail().Size)

			id, err := c.LastValidID()
			require.NoError(t, err)
			assert.Equal(t, uint64(3), id)

			res, err := c.Repair()
			require.NoError(t, err)
			assert.True(t, res.Truncated)
			assert.Equal(t, int64(len(tt.tail)), res.Removed)

			data, err := os.ReadFile(c.Path())
			require.NoError(t, err)
			assert.Equal(t, full, data)
		})
	}
}

func TestInvalidLengthBeforeValidFramesIsCorrupt(t *testing.T) {
	c, _ := newCube(t)
	events := threeCommits(t)
	frames := testutil.Frames(t, events...)
	data := testutil.CubeBytes(t, events...)

	secondStart := record.HeaderSize + len(frames[0])
	copy(data[secondStart:], []byte{0, 0, 0, 0})
	testutil.WriteCube(t, c.Path(), data)

	_, err := c.LastValidID()
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeCorruptRecord, ce.Code)
	assert.Equal(t, int64(secondStart), ce.Offset)
	assert.ErrorIs(t, err, record.ErrInvalid)
}

func TestTrailingFragmentProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	minFrame := record.MinFrame(record.VersionCurrent)

	properties.Property("bytes too short for a frame never hide valid commits", prop.ForAll(
		func(n int, raw []byte, cut int) bool {
			fragment := raw[:min(cut, len(raw))]
			if len(fragment) == 0 {
				return true
			}
			commits := make([]testutil.Commit, n)
			for i := range commits {
				commits[i] = testutil.Commit{Kind: "feat", Summary: "commit"}
			}
			events := testutil.Chain(t, testutil.Alice, testutil.NewDeterministicClock(), commits...)
			full := testutil.CubeBytes(t, events...)

			c, _ := newCube(t)
			testutil.WriteCube(t, c.Path(), append(append([]byte(nil), full...), fragment...))

			s, err := c.Scan()
			if err != nil {
				return false
			}
			defer s.Close()
			var got []uint64
			for s.Next() {
				ev, err := s.Event()
				if err != nil {
					return false
				}
				got = append(got, ev.ID)
			}
			if s.Err() != nil || s.Tail() == nil || s.Tail().Offset != int64(len(full)) {
				return false
			}
			if len(got) != n {
				return false
			}
			for i, id := range got {
				if id != events[i].ID {
					return false
				}
			}
			id, err := c.LastValidID()
			return err == nil && id == uint64(n)
		},
		gen.IntRange(0, 10),
		gen.SliceOfN(minFrame-1, gen.UInt8()),
		gen.IntRange(1, minFrame-1),
	))

	properties.TestingRun(t)
}

func TestNonFinalCorruptionReportsOffset(t *testing.T) {
	c, _ := newCube(t)
	events := threeCommits(t)
	frames := testutil.Frames(t, events...)
	data := testutil.CubeBytes(t, events...)

	secondStart := int64(record.HeaderSize + len(frames[0]))
	data[secondStart+record.LengthSize+5] ^= 0x10
	testutil.WriteCube(t, c.Path(), data)

	got, s := scanAll(t, c)
	assert.Len(t, got, 1)

	err := s.Err()
	require.Error(t, err)
	assert.True(t, IsCorruption(err))
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeCorruptRecord, ce.Code)
	assert.Equal(t, secondStart, ce.Offset)
	assert.Equal(t, c.Path(), ce.Path)
	assert.ErrorIs(t, err, record.ErrChecksum)

	_, err = c.LastValidID()
	assert.True(t, IsCorruption(err))
}

func TestBadMagicIsCorrupt(t *testing.T) {
	c, _ := newCube(t)
	data := testutil.CubeBytes(t, threeCommits(t)...)
	copy(data, "NOPE")
	testutil.WriteCube(t, c.Path(), data)

	_, err := c.Scan()
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeCorruptRecord, ce.Code)
	assert.Zero(t, ce.Offset)
}

func TestShortHeaderIsTail(t *testing.T) {
	c, _ := newCube(t)
	testutil.WriteCube(t, c.Path(), record.EncodeHeader()[:5])

	got, s := scanAll(t, c)
	assert.Empty(t, got)
	require.NoError(t, s.Err())
	require.NotNil(t, s.Tail())
	assert.Zero(t, s.Tail().Offset)

	res, err := c.Repair()
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, int64(5), res.Removed)

	size, err := c.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestChainBreak(t *testing.T) {
	c, _ := newCube(t)
	events := threeCommits(t)
	events[2].Parent = 1
	testutil.WriteCube(t, c.Path(), testutil.CubeBytes(t, events...))

	_, err := c.LastValidID()
	require.Error(t, err)
	assert.True(t, IsChainBreak(err))
	assert.True(t, IsCorruption(err))

	rep, err := c.Verify()
	require.NoError(t, err)
	require.NotNil(t, rep.Fault)
	assert.Equal(t, CodeChainBreak, rep.Fault.Code)
	assert.Equal(t, uint64(3), rep.Fault.ID)
	assert.Equal(t, 2, rep.Records)
	assert.False(t, rep.OK())
}

func TestParentAtOrAboveIDIsChainBreak(t *testing.T) {
	c, _ := newCube(t)
	events := threeCommits(t)
	frames := testutil.Frames(t, events...)
	data := testutil.CubeBytes(t, events[0])
	data = append(data, testutil.Relink(t, frames[1], 7)...)
	testutil.WriteCube(t, c.Path(), data)

	rep, err := c.Verify()
	require.NoError(t, err)
	require.NotNil(t, rep.Fault)
	assert.Equal(t, CodeChainBreak, rep.Fault.Code, "a sealed record with a bad link is not checksum corruption")
	assert.Equal(t, uint64(2), rep.Fault.ID)
	assert.Equal(t, 1, rep.Records)
}

func TestFirstEventWithParentIsChainBreak(t *testing.T) {
	c, _ := newCube(t)
	events := threeCommits(t)
	testutil.WriteCube(t, c.Path(), testutil.CubeBytes(t, events[1:]...))

	_, err := c.LastValidID()
	assert.True(t, IsChainBreak(err))
}

func TestVerifyHealthyCube(t *testing.T) {
	c, _ := newCube(t)
	data := testutil.CubeBytes(t, threeCommits(t)...)
	testutil.WriteCube(t, c.Path(), data)

	rep, err := c.Verify()
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.Equal(t, 3, rep.Records)
	assert.Equal(t, uint64(3), rep.LastID)
	assert.Equal(t, int64(len(data)), rep.ValidEnd)
	assert.Equal(t, record.VersionCurrent, rep.Version)
}

func TestRepairTruncatesOnlyTheTail(t *testing.T) {
	c, _ := newCube(t)
	events := threeCommits(t)
	intact := testutil.CubeBytes(t, events[:2]...)
	frames := testutil.Frames(t, events...)
	testutil.WriteCube(t, c.Path(), append(append([]byte(nil), intact...), frames[2][:9]...))

	res, err := c.Repair()
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, int64(len(intact)), res.Offset)
	assert.Equal(t, int64(9), res.Removed)

	data, err := os.ReadFile(c.Path())
	require.NoError(t, err)
	assert.Equal(t, intact, data)

	// Nothing left to repair.
	res, err = c.Repair()
	require.NoError(t, err)
	assert.False(t, res.Truncated)

	// Appending resumes at the repaired end.
	pos, err := c.Position()
	require.NoError(t, err)
	_, err = c.Append(frames[2], pos.End)
	require.NoError(t, err)
	id, err := c.LastValidID()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
}

func TestRepairRefusesMidFileCorruption(t *testing.T) {
	c, _ := newCube(t)
	events := threeCommits(t)
	data := testutil.CubeBytes(t, events...)
	data[record.HeaderSize+record.LengthSize+2] ^= 0x01
	testutil.WriteCube(t, c.Path(), data)

	_, err := c.Repair()
	require.Error(t, err)
	assert.True(t, IsCorruption(err))

	after, err := os.ReadFile(c.Path())
	require.NoError(t, err)
	assert.Equal(t, data, after, "corrupt cube must be left untouched")
}

func TestLockContentionIsRetryable(t *testing.T) {
	c, l := newCube(t)

	unlock, err := c.Lock()
	require.NoError(t, err)

	other, err := Open(l, period, "alice")
	require.NoError(t, err)
	_, err = other.Lock()
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, CodeConcurrentWrite, code)

	require.NoError(t, unlock())

	unlock, err = other.Lock()
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestLockDoesNotCreateCube(t *testing.T) {
	c, l := newCube(t)
	unlock, err := c.Lock()
	require.NoError(t, err)
	defer unlock()

	exists, err := c.Exists()
	require.NoError(t, err)
	assert.False(t, exists, "locking must leave cube creation to the first append")
	refs, err := l.ListCubes()
	require.NoError(t, err)
	assert.Empty(t, refs, "lock files are not cubes")

	pos, err := c.Position()
	require.NoError(t, err)
	assert.Zero(t, pos.LastID)
	assert.Zero(t, pos.End)
	assert.Nil(t, pos.Tail)

	f, err := record.Encode(threeCommits(t)[0])
	require.NoError(t, err)
	res, err := c.Append(f, pos.End)
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestLegacyCubeIsReadOnly(t *testing.T) {
	c, _ := newCube(t)
	data := testutil.LegacyCubeBytes(t,
		testutil.LegacyRecord{ID: 1, Nanos: 1_760_000_000_000_000_000, Kind: "feat", Text: "plain"},
		testutil.LegacyRecord{ID: 2, Nanos: 1_760_000_001_000_000_000, Kind: "fix", Text: "more"},
	)
	testutil.WriteCube(t, c.Path(), data)

	pos, err := c.Position()
	require.NoError(t, err)
	assert.True(t, pos.Legacy)
	assert.Equal(t, uint64(2), pos.LastID)

	ev := threeCommits(t)[0]
	ev.ID, ev.Parent = 3, 2
	f, err := record.Encode(ev)
	require.NoError(t, err)
	_, err = c.Append(f, pos.End)
	require.Error(t, err)
}

func TestLegacyChainRequiresIncreasingIDs(t *testing.T) {
	c, _ := newCube(t)
	testutil.WriteCube(t, c.Path(), testutil.LegacyCubeBytes(t,
		testutil.LegacyRecord{ID: 5, Nanos: 1_760_000_000_000_000_000, Kind: "feat", Text: "x"},
		testutil.LegacyRecord{ID: 5, Nanos: 1_760_000_001_000_000_000, Kind: "fix", Text: "y"},
	))

	_, err := c.LastValidID()
	assert.True(t, IsChainBreak(err))
}
