package testutil

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/payload"
	"github.com/roach88/akasha/internal/record"
)

// Alice is the default test identity.
var Alice = event.Identity{Author: "alice", Email: "alice@example.com"}

// Bob is a second author for multi-cube tests.
var Bob = event.Identity{Author: "bob", Email: "bob@example.com"}

// Commit is a short description of a commit event for fixtures.
type Commit struct {
	Kind    string
	Summary string
	Body    string
}

// Chain seals commits in order, linking each to the previous one, with
// timestamps taken from clock.
func Chain(t testing.TB, id event.Identity, clock *DeterministicClock, commits ...Commit) []event.Event {
	t.Helper()
	var (
		out  []event.Event
		last uint64
	)
	for _, c := range commits {
		ev, err := event.Seal(event.Draft{
			Kind:     c.Kind,
			Summary:  c.Summary,
			Body:     c.Body,
			Identity: id,
		}, last, clock.Now())
		require.NoError(t, err)
		out = append(out, ev)
		last = ev.ID
	}
	return out
}

// CubeBytes encodes events into a complete current-version cube image.
func CubeBytes(t testing.TB, events ...event.Event) []byte {
	t.Helper()
	buf := record.EncodeHeader()
	for _, ev := range events {
		f, err := record.Encode(ev)
		require.NoError(t, err)
		buf = append(buf, f...)
	}
	return buf
}

// WriteCube writes raw cube bytes to path, creating parent directories.
func WriteCube(t testing.TB, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// LegacyRecord is one record of a version 1 cube.
type LegacyRecord struct {
	ID    uint64
	Nanos int64
	Kind  string
	Text  string
}

// LegacyCubeBytes encodes records into a version 1 cube image.
func LegacyCubeBytes(t testing.TB, recs ...LegacyRecord) []byte {
	t.Helper()
	buf := record.EncodeLegacyHeader()
	for _, r := range recs {
		f, err := record.EncodeLegacy(r.ID, r.Nanos, r.Kind, r.Text)
		require.NoError(t, err)
		buf = append(buf, f...)
	}
	return buf
}

// Frames returns the encoded frames of events, for offset arithmetic in tests.
func Frames(t testing.TB, events ...event.Event) []record.Frame {
	t.Helper()
	out := make([]record.Frame, 0, len(events))
	for _, ev := range events {
		f, err := record.Encode(ev)
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

// Content builds a payload object from alternating keys and string values.
func Content(kv ...string) payload.Object {
	obj := payload.Object{}
	for i := 0; i+1 < len(kv); i += 2 {
		obj[kv[i]] = payload.String(kv[i+1])
	}
	return obj
}

// Relink rewrites the parent field of an encoded frame and recomputes its
// checksum. It builds chain-break fixtures that Encode refuses to write.
func Relink(t testing.TB, f record.Frame, parent uint64) record.Frame {
	t.Helper()
	out := append(record.Frame(nil), f...)
	p := out.Payload()
	require.GreaterOrEqual(t, len(p), 25)
	// UNIT(1) TS(8) ID(8) PARENT(8)
	binary.LittleEndian.PutUint64(p[17:25], parent)
	binary.LittleEndian.PutUint32(out[len(out)-record.ChecksumSize:], crc32.ChecksumIEEE(p))
	return out
}
