// Package snapshot records the state of a working tree as a file manifest.
//
// A snapshot lists every tracked regular file with its size and content
// digest. Snapshots are stored per author under tree/<author>/ and are never
// rewritten: a new inscription writes a new file and moves the CURRENT pointer.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/payload"
)

// File is one manifest entry. Path is slash-separated and relative to the root.
type File struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
}

// Snapshot is an inscribed working tree.
type Snapshot struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	Fingerprint string    `json:"fingerprint"`
	Files       []File    `json:"files"`
}

// Options controls Inscribe.
type Options struct {
	Author string
	Now    time.Time

	// Skip lists root-relative directories never walked, such as the data directory.
	Skip []string

	// Ignore adds gitignore-style patterns to those read from the root's
	// .gitignore and .ignore files.
	Ignore []string

	Logger *slog.Logger
}

// ignoreFiles are read from the root, in order.
var ignoreFiles = []string{".gitignore", ".ignore"}

// Inscribe walks root and builds a snapshot of its regular files. Hidden
// entries, .git, the Skip directories and ignored paths are left out.
// Unreadable directory entries are logged and skipped.
func Inscribe(root string, opts Options) (Snapshot, error) {
	if err := event.ValidateAuthor(opts.Author); err != nil {
		return Snapshot{}, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	matcher, err := loadIgnore(root, opts.Ignore)
	if err != nil {
		return Snapshot{}, err
	}
	skip := make(map[string]bool, len(opts.Skip))
	for _, s := range opts.Skip {
		skip[filepath.ToSlash(filepath.Clean(s))] = true
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			logger.Warn("skipping unreadable entry", slog.String("path", path), slog.String("error", walkErr.Error()))
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || skip[rel] || matcher.MatchesPath(rel+"/") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() || matcher.MatchesPath(rel) {
			return nil
		}

		f, err := digestFile(path, rel)
		if err != nil {
			return err
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("inscribe: %w", err)
	}

	slices.SortFunc(files, func(a, b File) int { return strings.Compare(a.Path, b.Path) })

	id, err := uuid.NewV7()
	if err != nil {
		return Snapshot{}, fmt.Errorf("inscribe: %w", err)
	}
	fp, err := fingerprint(files)
	if err != nil {
		return Snapshot{}, fmt.Errorf("inscribe: %w", err)
	}

	logger.Debug("tree inscribed", slog.String("root", root), slog.Int("files", len(files)), slog.String("fingerprint", fp))
	return Snapshot{
		ID:          id.String(),
		Author:      opts.Author,
		CreatedAt:   now.UTC(),
		Fingerprint: fp,
		Files:       files,
	}, nil
}

func loadIgnore(root string, extra []string) (*ignore.GitIgnore, error) {
	var lines []string
	for _, name := range ignoreFiles {
		data, err := os.ReadFile(filepath.Join(root, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		lines = append(lines, strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")...)
	}
	lines = append(lines, extra...)
	return ignore.CompileIgnoreLines(lines...), nil
}

func digestFile(path, rel string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer f.Close()

	digest, n, err := payload.FingerprintReader(payload.DomainFile, f)
	if err != nil {
		return File{}, fmt.Errorf("digest %s: %w", rel, err)
	}
	return File{Path: rel, Size: n, Digest: digest}, nil
}

// fingerprint hashes the canonical manifest, so it depends only on paths,
// sizes and digests.
func fingerprint(files []File) (string, error) {
	manifest := make(payload.Array, len(files))
	for i, f := range files {
		manifest[i] = payload.NewObject(
			payload.P("path", payload.String(f.Path)),
			payload.P("size", payload.Int(f.Size)),
			payload.P("digest", payload.String(f.Digest)),
		)
	}
	return payload.FingerprintValue(payload.DomainSnapshot, manifest)
}

// Ref returns the reference embedded in commit content under "snapshot".
func (s Snapshot) Ref() payload.Object {
	return payload.NewObject(
		payload.P("id", payload.String(s.ID)),
		payload.P("fingerprint", payload.String(s.Fingerprint)),
		payload.P("files", payload.Int(int64(len(s.Files)))),
	)
}

// Verify recomputes the fingerprint from the manifest.
func (s Snapshot) Verify() error {
	fp, err := fingerprint(s.Files)
	if err != nil {
		return err
	}
	if fp != s.Fingerprint {
		return fmt.Errorf("snapshot %s: fingerprint mismatch", s.ID)
	}
	return nil
}
