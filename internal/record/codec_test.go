package record

import (
	"encoding/binary"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/payload"
)

func sampleEvent() event.Event {
	return event.Event{
		ID:     2,
		Parent: 1,
		Kind:   "fix",
		Content: payload.NewObject(
			payload.P(event.KeySummary, payload.String("b")),
			payload.P(event.KeyBody, payload.String("second")),
			payload.P("files", payload.Array{payload.String("a.go"), payload.Int(3)}),
		),
		Author:      "alice",
		AuthorEmail: "alice@example.com",
		Timestamp:   1_760_000_000_123,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ev := sampleEvent()

	f, err := Encode(ev)
	require.NoError(t, err)
	require.NoError(t, VerifyFrame(f, VersionCurrent))

	got, err := Decode(f, VersionCurrent)
	require.NoError(t, err)

	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.Parent, got.Parent)
	assert.Equal(t, ev.Kind, got.Kind)
	assert.Equal(t, ev.Content, got.Content)
	assert.Equal(t, ev.Author, got.Author)
	assert.Equal(t, ev.AuthorEmail, got.AuthorEmail)
	assert.Equal(t, ev.Timestamp, got.Timestamp)
	assert.Equal(t, f.Checksum(), got.Checksum)
	assert.False(t, got.Legacy)
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(sampleEvent())
	require.NoError(t, err)
	b, err := Encode(sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeNilContent(t *testing.T) {
	ev := sampleEvent()
	ev.Content = nil

	f, err := Encode(ev)
	require.NoError(t, err)
	got, err := Decode(f, VersionCurrent)
	require.NoError(t, err)
	assert.Empty(t, got.Content)
}

func TestEncodeRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*event.Event)
	}{
		{"zero id", func(e *event.Event) { e.ID = 0 }},
		{"parent not below id", func(e *event.Event) { e.Parent = e.ID }},
		{"empty kind", func(e *event.Event) { e.Kind = "  " }},
		{"invalid utf-8 author", func(e *event.Event) { e.Author = "\xff" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := sampleEvent()
			tt.mutate(&ev)
			_, err := Encode(ev)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	f, err := Encode(sampleEvent())
	require.NoError(t, err)

	for _, n := range []int{0, 2, LengthSize, LengthSize + 10, len(f) - 1} {
		_, err := Decode(f[:n], VersionCurrent)
		assert.ErrorIs(t, err, ErrTruncated, "prefix of %d bytes", n)
		assert.False(t, IsCorrupt(err))
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	f, err := Encode(sampleEvent())
	require.NoError(t, err)

	f[LengthSize+1] ^= 0x01
	_, err = Decode(f, VersionCurrent)
	assert.ErrorIs(t, err, ErrChecksum)
	assert.True(t, IsCorrupt(err))
}

func TestDecodeBadLength(t *testing.T) {
	f, err := Encode(sampleEvent())
	require.NoError(t, err)

	binary.LittleEndian.PutUint32(f[0:4], 3)
	_, err = Decode(f, VersionCurrent)
	assert.ErrorIs(t, err, ErrInvalid)

	binary.LittleEndian.PutUint32(f[0:4], MaxFrameLength+1)
	_, err = Decode(f, VersionCurrent)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeStructurallyInvalidWithValidChecksum(t *testing.T) {
	ev := sampleEvent()
	f, err := Encode(ev)
	require.NoError(t, err)

	// Break the kind length and reseal so only the structure is wrong.
	p := append([]byte(nil), f.Payload()...)
	binary.LittleEndian.PutUint16(p[25:27], 200)
	_, err = Decode(seal(p), VersionCurrent)
	assert.ErrorIs(t, err, ErrInvalid)

	// Unknown timestamp unit.
	p = append([]byte(nil), f.Payload()...)
	p[0] = 9
	_, err = Decode(seal(p), VersionCurrent)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeNormalizesUntaggedNanos(t *testing.T) {
	f, err := Encode(sampleEvent())
	require.NoError(t, err)

	p := append([]byte(nil), f.Payload()...)
	p[0] = byte(event.UnitUnspecified)
	binary.LittleEndian.PutUint64(p[1:9], uint64(sampleEvent().Timestamp*1_000_000))

	got, err := Decode(seal(p), VersionCurrent)
	require.NoError(t, err)
	assert.Equal(t, sampleEvent().Timestamp, got.Timestamp)
}

func TestChecksumDetectsSingleByteCorruption(t *testing.T) {
	f, err := Encode(sampleEvent())
	require.NoError(t, err)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("any flipped byte fails decode", prop.ForAll(
		func(pos int, mask uint8) bool {
			damaged := append(Frame(nil), f...)
			damaged[pos] ^= mask
			_, err := Decode(damaged, VersionCurrent)
			return err != nil
		},
		gen.IntRange(0, len(f)-1),
		gen.UInt8Range(1, 255),
	))

	properties.TestingRun(t)
}

func TestHeader(t *testing.T) {
	h, err := ParseHeader(EncodeHeader())
	require.NoError(t, err)
	assert.Equal(t, VersionCurrent, h.Version)

	h, err = ParseHeader(EncodeLegacyHeader())
	require.NoError(t, err)
	assert.Equal(t, VersionLegacy, h.Version)

	_, err = ParseHeader([]byte("AKL"))
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = ParseHeader([]byte("XX"))
	assert.ErrorIs(t, err, ErrInvalid)

	bad := EncodeHeader()
	bad[0] = 'Z'
	_, err = ParseHeader(bad)
	assert.ErrorIs(t, err, ErrInvalid)

	bad = EncodeHeader()
	binary.LittleEndian.PutUint16(bad[4:6], 7)
	_, err = ParseHeader(bad)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeLeavesParentLinksToChainCheck(t *testing.T) {
	f, err := Encode(sampleEvent())
	require.NoError(t, err)

	// A sealed record naming a parent at or above its own id still decodes;
	// judging the link is the cube's job.
	p := append([]byte(nil), f.Payload()...)
	binary.LittleEndian.PutUint64(p[17:25], 7)

	got, err := Decode(seal(p), VersionCurrent)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.ID)
	assert.Equal(t, uint64(7), got.Parent)
}
