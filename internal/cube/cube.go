package cube

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/roach88/akasha/internal/event"
)

// Cube is a handle on one cube file. It holds no open file descriptors;
// every operation opens what it needs and closes it before returning,
// except Scan, whose scanner must be closed by the caller.
type Cube struct {
	ref    Ref
	logger *slog.Logger
}

// Option configures a Cube.
type Option func(*Cube)

// WithLogger sets the logger used for tail and repair diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cube) {
		if l != nil {
			c.logger = l
		}
	}
}

// Open returns the cube for (period, author). It validates the key but does
// not touch the file system.
func Open(l Layout, period event.Period, author string, opts ...Option) (*Cube, error) {
	if _, err := event.ParsePeriod(string(period)); err != nil {
		return nil, err
	}
	if err := event.ValidateAuthor(author); err != nil {
		return nil, err
	}
	return OpenRef(Ref{
		Period: string(period),
		Author: author,
		Path:   l.CubePath(period, author),
	}, opts...), nil
}

// OpenRef returns the cube named by a listed ref.
func OpenRef(ref Ref, opts ...Option) *Cube {
	c := &Cube{
		ref:    ref,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ref returns the cube's identity.
func (c *Cube) Ref() Ref { return c.ref }

// Path returns the cube file path.
func (c *Cube) Path() string { return c.ref.Path }

// Period returns the period directory name.
func (c *Cube) Period() string { return c.ref.Period }

// Author returns the owning author.
func (c *Cube) Author() string { return c.ref.Author }

// Exists reports whether the cube file is present.
func (c *Cube) Exists() (bool, error) {
	_, err := os.Stat(c.ref.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat cube: %w", err)
	}
	return true, nil
}

// Size returns the current file size, or ErrNotFound.
func (c *Cube) Size() (int64, error) {
	st, err := os.Stat(c.ref.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("stat cube: %w", err)
	}
	return st.Size(), nil
}
