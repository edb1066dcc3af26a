package cube

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/akasha/internal/testutil"
)

func TestNewLayout(t *testing.T) {
	assert.Equal(t, filepath.Join("/work", ".eikyu"), NewLayout("/work", "").Root)
	assert.Equal(t, filepath.Join("/work", "data"), NewLayout("/work", "data").Root)
	assert.Equal(t, "/elsewhere", NewLayout("/work", "/elsewhere").Root)
	assert.Equal(t, "/work", NewLayout("/work", "").RepoRoot())
}

func TestInitCreatesSkeleton(t *testing.T) {
	l := NewLayout(t.TempDir(), "")
	assert.False(t, l.Initialized())

	require.NoError(t, l.Init("alice", period))
	assert.True(t, l.Initialized())

	for _, dir := range []string{
		filepath.Join(l.CubesDir(), "2026-10"),
		l.BranchesDir(),
		l.TreeDir("alice"),
		l.CacheDir(),
	} {
		st, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, st.IsDir())
	}

	assert.Error(t, l.Init("a/b", period))
}

func TestListCubes(t *testing.T) {
	l := NewLayout(t.TempDir(), "")

	refs, err := l.ListCubes()
	require.NoError(t, err)
	assert.Empty(t, refs)

	empty := testutil.CubeBytes(t)
	testutil.WriteCube(t, filepath.Join(l.CubesDir(), "2026-10", "bob.cube"), empty)
	testutil.WriteCube(t, filepath.Join(l.CubesDir(), "2026-10", "alice.cube"), empty)
	testutil.WriteCube(t, filepath.Join(l.CubesDir(), "2026-09", "alice.cube"), empty)
	testutil.WriteCube(t, filepath.Join(l.CubesDir(), "07", "carol.cube"), empty)
	testutil.WriteCube(t, filepath.Join(l.CubesDir(), "2026-10", "notes.txt"), empty)
	testutil.WriteCube(t, filepath.Join(l.CubesDir(), "scratch", "x.cube"), empty)

	refs, err = l.ListCubes()
	require.NoError(t, err)

	var keys []string
	for _, r := range refs {
		keys = append(keys, r.Key())
	}
	assert.Equal(t, []string{"07/carol", "2026-09/alice", "2026-10/alice", "2026-10/bob"}, keys)
	assert.True(t, refs[0].Legacy)
	assert.False(t, refs[1].Legacy)
}
