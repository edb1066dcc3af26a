package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/akasha/internal/config"
	"github.com/roach88/akasha/internal/cube"
	"github.com/roach88/akasha/internal/metrics"
	"github.com/roach88/akasha/internal/repo"
	"github.com/roach88/akasha/internal/timeline"
)

// Version is the ak release, overridden at link time.
var Version = "0.4.0-dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Repo    string
	Metrics bool

	// Clock and Location are fixed by tests; nil means the host's.
	Clock    repo.Clock
	Location *time.Location

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ak CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ak",
		Short: "ak - append-only commit history",
		Long: `ak records commits as sealed events in per-author monthly cubes.

Cubes are append-only: every record is length-prefixed and checksummed, and
each event links to the one before it. Timelines are rebuilt by replaying
cubes from the start.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Metrics {
				metrics.Write(cmd.ErrOrStderr(), false)
			}
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVarP(&opts.Repo, "repo", "C", ".", "repository working directory")
	pf.BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics to stderr on exit")
	pf.String("data-dir", cube.DefaultDataDir, "data directory, relative to --repo")
	pf.String("username", "", "author identity (overrides AK_USERNAME and config)")
	pf.String("email", "", "author email")
	pf.String("time-mode", "", "timestamp display: local, utc or iso8601")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewSealCommand(opts))
	cmd.AddCommand(NewTimelineCommand(opts))
	cmd.AddCommand(NewViewCommand(opts))
	cmd.AddCommand(NewRootEventCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewRepairCommand(opts))
	cmd.AddCommand(NewInscribeCommand(opts))
	cmd.AddCommand(NewDiffCommand(opts))
	cmd.AddCommand(NewInterlaceCommand(opts))
	cmd.AddCommand(NewIndexCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// Logger returns the command logger, discarding output before the root
// pre-run has installed one.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.logger
}

// loadConfig merges config sources with this command's flags.
func (o *RootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(config.Options{RepoRoot: o.Repo, Flags: cmd.Flags()})
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	return cfg, nil
}

func (o *RootOptions) repoOptions() []repo.Option {
	return []repo.Option{repo.WithLogger(o.Logger()), repo.WithClock(o.Clock)}
}

// openRepo loads configuration and opens the repository.
func (o *RootOptions) openRepo(cmd *cobra.Command) (*repo.Repository, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	r, err := repo.Open(o.Repo, cfg, o.repoOptions()...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open repository", err)
	}
	return r, nil
}

// timeMode resolves --time over the configured mode.
func (o *RootOptions) timeMode(cmd *cobra.Command, r *repo.Repository) (timeline.Mode, error) {
	s := r.Config.TimeMode
	if f := cmd.Flags().Lookup("time"); f != nil && f.Changed {
		s = f.Value.String()
	}
	m, err := timeline.ParseMode(s)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid time mode", err)
	}
	return m, nil
}

func (o *RootOptions) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.Local
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of ak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(map[string]string{"version": Version})
			}
			return f.Success("ak v" + Version)
		},
	}
}
