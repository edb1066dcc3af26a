package snapshot

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/akasha/internal/cube"
	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/testutil"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func opts() Options {
	return Options{
		Author: "alice",
		Now:    testutil.Epoch,
		Skip:   []string{"data"},
		Ignore: []string{"*.log"},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func sampleTree(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, root, "README.md", "hello")
	writeFile(t, root, "src/main.go", "package main")
	writeFile(t, root, "src/util/strings.go", "package util")
	writeFile(t, root, ".gitignore", "build/\n# comment\n")
	writeFile(t, root, "build/out.bin", "binary")
	writeFile(t, root, ".hidden/secret", "x")
	writeFile(t, root, ".eikyu/cubes/2026-10/alice.cube", "AKLA")
	writeFile(t, root, "data/state", "skip me")
	writeFile(t, root, "debug.log", "noise")
	return root
}

func paths(s Snapshot) []string {
	out := []string{}
	for _, f := range s.Files {
		out = append(out, f.Path)
	}
	return out
}

func TestInscribe(t *testing.T) {
	root := sampleTree(t)

	s, err := Inscribe(root, opts())
	require.NoError(t, err)

	assert.Equal(t, []string{"README.md", "src/main.go", "src/util/strings.go"}, paths(s))
	assert.Equal(t, "alice", s.Author)
	assert.Equal(t, testutil.Epoch, s.CreatedAt)
	assert.Len(t, s.Fingerprint, 64)
	assert.Equal(t, int64(5), s.Files[0].Size)
	assert.NoError(t, s.Verify())
}

func TestInscribeFingerprintDependsOnContentOnly(t *testing.T) {
	root := sampleTree(t)

	a, err := Inscribe(root, opts())
	require.NoError(t, err)
	b, err := Inscribe(root, opts())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)

	writeFile(t, root, "README.md", "hello!")
	c, err := Inscribe(root, opts())
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestInscribeRequiresAuthor(t *testing.T) {
	_, err := Inscribe(t.TempDir(), Options{})
	assert.ErrorIs(t, err, event.ErrNoIdentity)
}

func TestSaveAndCurrent(t *testing.T) {
	root := sampleTree(t)
	l := cube.NewLayout(root, "")

	_, ok, err := Current(l, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := Inscribe(root, opts())
	require.NoError(t, err)
	require.NoError(t, first.Save(l))

	got, ok, err := Current(l, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.Files, got.Files)

	second, err := Inscribe(root, opts())
	require.NoError(t, err)
	require.NoError(t, second.Save(l))

	got, _, err = Current(l, "alice")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	// The superseded snapshot is still there.
	old, err := Load(l, "alice", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, old.Fingerprint)

	// Saving the same snapshot twice is refused.
	assert.Error(t, first.Save(l))
}

func TestLoadRejectsTamperedManifest(t *testing.T) {
	root := sampleTree(t)
	l := cube.NewLayout(root, "")

	s, err := Inscribe(root, opts())
	require.NoError(t, err)
	s.Files[0].Size = 999
	s.Fingerprint = "0000"
	require.NoError(t, s.Save(l))

	_, err = Load(l, "alice", s.ID)
	assert.ErrorContains(t, err, "fingerprint mismatch")

	_, err = Load(l, "alice", "../../etc/passwd")
	assert.Error(t, err)
}

func TestRef(t *testing.T) {
	s := Snapshot{ID: "id-1", Fingerprint: "fp", Files: make([]File, 3)}
	ref := s.Ref()
	assert.Equal(t, "id-1", ref.GetString("id"))
	assert.Equal(t, "fp", ref.GetString("fingerprint"))
}

func TestDiff(t *testing.T) {
	prev := Snapshot{Files: []File{
		{Path: "a", Size: 1, Digest: "1"},
		{Path: "b", Size: 1, Digest: "2"},
		{Path: "d", Size: 1, Digest: "4"},
	}}
	cur := Snapshot{Files: []File{
		{Path: "a", Size: 1, Digest: "1"},
		{Path: "b", Size: 2, Digest: "9"},
		{Path: "c", Size: 1, Digest: "3"},
	}}

	ch := Diff(&prev, cur)
	assert.Equal(t, []string{"c"}, ch.Added)
	assert.Equal(t, []string{"d"}, ch.Removed)
	assert.Equal(t, []string{"b"}, ch.Modified)
	assert.False(t, ch.Empty())

	assert.True(t, Diff(&cur, cur).Empty())

	all := Diff(nil, cur)
	assert.Equal(t, []string{"a", "b", "c"}, all.Added)
}

func TestDiffAfterEdit(t *testing.T) {
	root := sampleTree(t)
	before, err := Inscribe(root, opts())
	require.NoError(t, err)

	writeFile(t, root, "src/main.go", "package main\n\nfunc main() {}")
	writeFile(t, root, "docs/guide.md", "guide")
	require.NoError(t, os.Remove(filepath.Join(root, "README.md")))

	after, err := Inscribe(root, Options{Author: "alice", Now: time.Now(), Skip: []string{"data"}, Ignore: []string{"*.log"}})
	require.NoError(t, err)

	ch := Diff(&before, after)
	assert.Equal(t, []string{"docs/guide.md"}, ch.Added)
	assert.Equal(t, []string{"README.md"}, ch.Removed)
	assert.Equal(t, []string{"src/main.go"}, ch.Modified)
}
