package cube

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/akasha/internal/event"
)

// DefaultDataDir is the data directory name inside a repository.
const DefaultDataDir = ".eikyu"

// Ext is the cube file extension.
const Ext = ".cube"

// Layout resolves paths inside a data directory.
type Layout struct {
	// Root is the data directory itself, e.g. /work/project/.eikyu.
	Root string
}

// NewLayout returns the layout for dataDir, resolved against repoRoot when relative.
func NewLayout(repoRoot, dataDir string) Layout {
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	if filepath.IsAbs(dataDir) {
		return Layout{Root: filepath.Clean(dataDir)}
	}
	return Layout{Root: filepath.Join(repoRoot, dataDir)}
}

// RepoRoot returns the directory that contains the data directory.
func (l Layout) RepoRoot() string {
	return filepath.Dir(l.Root)
}

// CubesDir is the parent of all period directories.
func (l Layout) CubesDir() string {
	return filepath.Join(l.Root, "cubes")
}

// CubePath returns cubes/<period>/<author>.cube.
func (l Layout) CubePath(period event.Period, author string) string {
	return filepath.Join(l.CubesDir(), string(period), author+Ext)
}

// TreeDir holds the snapshots of one author.
func (l Layout) TreeDir(author string) string {
	return filepath.Join(l.Root, "tree", author)
}

// BranchesDir is reserved for branch pointers.
func (l Layout) BranchesDir() string {
	return filepath.Join(l.Root, "branches")
}

// CacheDir holds derived, disposable data.
func (l Layout) CacheDir() string {
	return filepath.Join(l.Root, "cache")
}

// IndexPath is the derived SQLite index.
func (l Layout) IndexPath() string {
	return filepath.Join(l.CacheDir(), "index.db")
}

// ConfigPath is the repository configuration file.
func (l Layout) ConfigPath() string {
	return filepath.Join(l.Root, "config.yaml")
}

// Init creates the directory skeleton for an author's current period.
// Cube files themselves are created lazily on first append.
func (l Layout) Init(author string, period event.Period) error {
	if err := event.ValidateAuthor(author); err != nil {
		return err
	}
	dirs := []string{
		filepath.Join(l.CubesDir(), string(period)),
		l.BranchesDir(),
		l.TreeDir(author),
		l.CacheDir(),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("init %s: %w", d, err)
		}
	}
	return nil
}

// Initialized reports whether the data directory exists.
func (l Layout) Initialized() bool {
	st, err := os.Stat(l.CubesDir())
	return err == nil && st.IsDir()
}

// Ref names one cube file found on disk.
type Ref struct {
	// Period is the directory name: YYYY-MM, or a bare month MM for cubes
	// written by the original tool.
	Period string `json:"period"`
	Author string `json:"author"`
	Path   string `json:"path"`

	// Legacy is true for bare-month directories.
	Legacy bool `json:"legacy,omitempty"`
}

// Key returns "<period>/<author>".
func (r Ref) Key() string {
	return r.Period + "/" + r.Author
}

// ListCubes enumerates cubes/*/*.cube, sorted by period then author.
// A missing cubes directory yields no cubes.
func (l Layout) ListCubes() ([]Ref, error) {
	periods, err := os.ReadDir(l.CubesDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list cubes: %w", err)
	}

	var refs []Ref
	for _, pd := range periods {
		if !pd.IsDir() {
			continue
		}
		name := pd.Name()
		legacy := IsLegacyPeriod(name)
		if _, err := event.ParsePeriod(name); err != nil && !legacy {
			continue
		}

		dir := filepath.Join(l.CubesDir(), name)
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("list cubes: %w", err)
		}
		for _, f := range files {
			author, ok := strings.CutSuffix(f.Name(), Ext)
			if !ok || f.IsDir() || event.ValidateAuthor(author) != nil {
				continue
			}
			refs = append(refs, Ref{
				Period: name,
				Author: author,
				Path:   filepath.Join(dir, f.Name()),
				Legacy: legacy,
			})
		}
	}

	slices.SortFunc(refs, func(a, b Ref) int {
		if c := strings.Compare(a.Period, b.Period); c != 0 {
			return c
		}
		return strings.Compare(a.Author, b.Author)
	})
	return refs, nil
}

// IsLegacyPeriod reports whether name is a bare month directory, 01 to 12.
func IsLegacyPeriod(name string) bool {
	if len(name) != 2 || name[0] < '0' || name[0] > '1' || name[1] < '0' || name[1] > '9' {
		return false
	}
	return name != "00" && name <= "12"
}
