package repo

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/akasha/internal/config"
	"github.com/roach88/akasha/internal/cube"
	"github.com/roach88/akasha/internal/event"
)

// ErrNotInitialized is returned when the data directory does not exist.
var ErrNotInitialized = errors.New("not an ak repository (run ak init)")

// Clock supplies wall-clock time for sealing. Implemented by SystemClock
// (production) and testutil.DeterministicClock (tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Peeker is a Clock that can report its next reading without advancing.
// Each Now is one seal timestamp; lookups that only need the period peek.
type Peeker interface {
	Peek() time.Time
}

// Repository is an initialized ak working directory.
type Repository struct {
	Layout   cube.Layout
	Identity event.Identity
	Clock    Clock
	Config   config.Config

	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger passed to cubes, snapshots and the index.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(r *Repository) {
		if c != nil {
			r.Clock = c
		}
	}
}

func newRepository(root string, cfg config.Config, opts []Option) *Repository {
	r := &Repository{
		Layout:   cfg.Layout(root),
		Identity: cfg.Identity(),
		Clock:    SystemClock{},
		Config:   cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns the repository rooted at root. The data directory must exist.
func Open(root string, cfg config.Config, opts ...Option) (*Repository, error) {
	r := newRepository(root, cfg, opts)
	if !r.Layout.Initialized() {
		return nil, fmt.Errorf("%s: %w", r.Layout.Root, ErrNotInitialized)
	}
	return r, nil
}

// Init creates the data directory skeleton for the configured author and the
// current period, and writes config.yaml if none exists. Running it again on
// an initialized repository is harmless.
func Init(root string, cfg config.Config, opts ...Option) (*Repository, error) {
	r := newRepository(root, cfg, opts)
	if err := r.Identity.Validate(); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := r.Layout.Init(r.Identity.Author, r.CurrentPeriod()); err != nil {
		return nil, err
	}
	exists, err := fileExists(r.Layout.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if !exists {
		if err := config.Write(r.Layout.ConfigPath(), cfg); err != nil {
			return nil, fmt.Errorf("init: %w", err)
		}
	}
	r.logger.Info("repository initialized",
		slog.String("root", r.Layout.Root),
		slog.String("author", r.Identity.Author))
	return r, nil
}

// Logger returns the repository logger.
func (r *Repository) Logger() *slog.Logger {
	return r.logger
}

// CurrentPeriod is the period Seal writes to now. It does not consume a
// reading from a clock that implements Peeker.
func (r *Repository) CurrentPeriod() event.Period {
	if p, ok := r.Clock.(Peeker); ok {
		return event.PeriodOf(p.Peek())
	}
	return event.PeriodOf(r.Clock.Now())
}

// Cube returns the cube for (period, author). A bare two-digit month selects
// a legacy cube.
func (r *Repository) Cube(period, author string) (*cube.Cube, error) {
	if cube.IsLegacyPeriod(period) {
		if err := event.ValidateAuthor(author); err != nil {
			return nil, err
		}
		return cube.OpenRef(cube.Ref{
			Period: period,
			Author: author,
			Path:   r.Layout.CubePath(event.Period(period), author),
			Legacy: true,
		}, cube.WithLogger(r.logger)), nil
	}
	return cube.Open(r.Layout, event.Period(period), author, cube.WithLogger(r.logger))
}

// CurrentCube returns the cube Seal would write to now.
func (r *Repository) CurrentCube() (*cube.Cube, error) {
	if err := r.Identity.Validate(); err != nil {
		return nil, err
	}
	return r.Cube(string(r.CurrentPeriod()), r.Identity.Author)
}

// Cubes lists every cube, optionally limited to one period.
func (r *Repository) Cubes(period string) ([]*cube.Cube, error) {
	refs, err := r.Layout.ListCubes()
	if err != nil {
		return nil, err
	}
	var out []*cube.Cube
	for _, ref := range refs {
		if period != "" && ref.Period != period {
			continue
		}
		out = append(out, cube.OpenRef(ref, cube.WithLogger(r.logger)))
	}
	return out, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
