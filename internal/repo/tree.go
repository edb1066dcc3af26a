package repo

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/akasha/internal/snapshot"
)

// Inscribe snapshots the working tree and makes it the author's current one.
func (r *Repository) Inscribe() (snapshot.Snapshot, error) {
	s, err := r.inscribe(r.Identity.Author, r.Clock.Now())
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	if err := s.Save(r.Layout); err != nil {
		return snapshot.Snapshot{}, err
	}
	return s, nil
}

// Diff compares the working tree with the author's current snapshot. With
// no saved snapshot every file is reported as added.
func (r *Repository) Diff() (snapshot.Changes, error) {
	prev, ok, err := snapshot.Current(r.Layout, r.Identity.Author)
	if err != nil {
		return snapshot.Changes{}, err
	}
	cur, err := r.inscribe(r.Identity.Author, r.Clock.Now())
	if err != nil {
		return snapshot.Changes{}, err
	}
	if !ok {
		return snapshot.Diff(nil, cur), nil
	}
	return snapshot.Diff(&prev, cur), nil
}

func (r *Repository) inscribe(author string, now time.Time) (snapshot.Snapshot, error) {
	root := r.Layout.RepoRoot()
	opts := snapshot.Options{
		Author: author,
		Now:    now,
		Ignore: r.Config.Ignore,
		Logger: r.logger,
	}
	if rel, err := filepath.Rel(root, r.Layout.Root); err == nil && !strings.HasPrefix(rel, "..") {
		opts.Skip = []string{filepath.ToSlash(rel)}
	}
	s, err := snapshot.Inscribe(root, opts)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("inscribe: %w", err)
	}
	return s, nil
}
