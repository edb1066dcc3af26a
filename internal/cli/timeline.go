package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/timeline"
)

// TimelineOptions holds flags for the timeline command.
type TimelineOptions struct {
	*RootOptions
	cube   cubeFlags
	filter filterFlags
}

// TimelineResult is the JSON form of a timeline.
type TimelineResult struct {
	Period string        `json:"period"`
	Author string        `json:"author"`
	Events []event.Event `json:"events"`
}

// NewTimelineCommand creates the timeline command.
func NewTimelineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TimelineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "timeline",
		Aliases: []string{"log"},
		Short:   "Replay a cube and list its commits",
		Long: `Replay one cube from the start and list the commits that match the
filters, oldest first. A trailing fragment from an interrupted append ends the
listing quietly. Corruption or a broken chain stops it with an error after the
commits that precede the fault.

Exit codes:
  0 - Cube replayed
  1 - Cube is corrupt
  2 - Command error

Examples:
  ak timeline
  ak timeline --period 2026-09 --author bob --kind fix
  ak timeline --since 2026-10-01 --grep parser --time utc
  ak timeline --where 'kind == "feat" && id > 10u'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimeline(opts, cmd)
		},
	}

	opts.cube.register(cmd)
	opts.filter.register(cmd)
	registerTimeFlag(cmd)
	return cmd
}

func runTimeline(opts *TimelineOptions, cmd *cobra.Command) error {
	r, err := opts.openRepo(cmd)
	if err != nil {
		return err
	}
	mode, err := opts.timeMode(cmd, r)
	if err != nil {
		return err
	}
	loc := opts.location()
	filter, err := opts.filter.build(loc)
	if err != nil {
		return err
	}
	period, author := opts.cube.resolve(r)

	f := opts.formatter(cmd)
	res := TimelineResult{Period: period, Author: author, Events: []event.Event{}}
	w := cmd.OutOrStdout()
	for ev, err := range r.Replay(period, author, filter) {
		if err != nil {
			return integrityError(fmt.Sprintf("replay %s/%s stopped after %d events", period, author, len(res.Events)), err)
		}
		res.Events = append(res.Events, ev)
		if f.Format != "json" {
			fmt.Fprintln(w, timeline.RenderLine(ev, mode, loc))
		}
	}

	if f.Format == "json" {
		return f.Success(res)
	}
	if len(res.Events) == 0 {
		fmt.Fprintf(w, "No commits in %s/%s.\n", period, author)
	}
	return nil
}
