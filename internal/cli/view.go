package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/akasha/internal/cube"
	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/repo"
	"github.com/roach88/akasha/internal/timeline"
)

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	var cf cubeFlags

	cmd := &cobra.Command{
		Use:   "view [ID]",
		Short: "Show one commit in full",
		Long: `Show a commit with its parent, author, snapshot and body. Without an ID
the latest commit of the cube is shown.

Examples:
  ak view
  ak view 12 --period 2026-09`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showEvent(rootOpts, cmd, cf, func(r *repo.Repository, period, author string) (event.Event, bool, error) {
				if len(args) == 0 {
					return r.Latest(period, author)
				}
				id, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil || id == 0 {
					return event.Event{}, false, NewExitError(ExitCommandError, fmt.Sprintf("invalid event id %q", args[0]))
				}
				ev, err := r.Find(period, author, id)
				return ev, err == nil, err
			})
		},
	}

	cf.register(cmd)
	registerTimeFlag(cmd)
	return cmd
}

// NewRootEventCommand creates the root command, which shows a cube's first commit.
func NewRootEventCommand(rootOpts *RootOptions) *cobra.Command {
	var cf cubeFlags

	cmd := &cobra.Command{
		Use:   "root",
		Short: "Show the first commit of a cube",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showEvent(rootOpts, cmd, cf, func(r *repo.Repository, period, author string) (event.Event, bool, error) {
				return r.First(period, author)
			})
		},
	}

	cf.register(cmd)
	registerTimeFlag(cmd)
	return cmd
}

type eventLookup func(r *repo.Repository, period, author string) (event.Event, bool, error)

func showEvent(opts *RootOptions, cmd *cobra.Command, cf cubeFlags, lookup eventLookup) error {
	r, err := opts.openRepo(cmd)
	if err != nil {
		return err
	}
	mode, err := opts.timeMode(cmd, r)
	if err != nil {
		return err
	}
	period, author := cf.resolve(r)

	ev, ok, err := lookup(r, period, author)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		return integrityError(fmt.Sprintf("read %s/%s", period, author), err)
	}
	if !ok {
		return WrapExitError(ExitCommandError, fmt.Sprintf("no commits in %s/%s", period, author), cube.ErrNotFound)
	}

	f := opts.formatter(cmd)
	if f.Format == "json" {
		return f.Success(ev)
	}
	fmt.Fprint(cmd.OutOrStdout(), timeline.RenderDetail(ev, mode, opts.location()))
	return nil
}
