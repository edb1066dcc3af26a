package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/akasha/internal/cube"
)

const currentFile = "CURRENT"

// Save writes the snapshot to tree/<author>/<id>.json and points CURRENT at it.
// An existing snapshot file is never overwritten.
func (s Snapshot) Save(l cube.Layout) error {
	dir := l.TreeDir(s.Author)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, s.ID+".json"), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return writeAtomic(filepath.Join(dir, currentFile), []byte(s.ID+"\n"))
}

// Load reads one snapshot by id.
func Load(l cube.Layout, author, id string) (Snapshot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: invalid id %q", id)
	}
	data, err := os.ReadFile(filepath.Join(l.TreeDir(author), id+".json"))
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	if err := s.Verify(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Current returns the author's latest saved snapshot. The bool is false when
// none has been saved.
func Current(l cube.Layout, author string) (Snapshot, bool, error) {
	data, err := os.ReadFile(filepath.Join(l.TreeDir(author), currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("current snapshot: %w", err)
	}
	s, err := Load(l, author, strings.TrimSpace(string(data)))
	if err != nil {
		return Snapshot{}, false, err
	}
	return s, true, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
