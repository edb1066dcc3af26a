package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/akasha/internal/timeline"
)

// InterlaceOptions holds flags for the interlace command.
type InterlaceOptions struct {
	*RootOptions
	Period  string
	Authors []string
	filter  filterFlags
}

// InterlaceFault is the JSON form of a cube that could not be merged fully.
type InterlaceFault struct {
	Cube    string `json:"cube"`
	Kept    int    `json:"kept"`
	Message string `json:"message"`
}

// NewInterlaceCommand creates the interlace command.
func NewInterlaceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InterlaceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "interlace",
		Short: "Merge every author's commits into one timeline",
		Long: `Replay every cube of a period and merge the commits by timestamp, then
author. A corrupt cube contributes the commits before its fault and is
listed at the end; the other cubes are unaffected.

Exit codes:
  0 - Every cube merged
  1 - At least one cube is corrupt
  2 - Command error

Examples:
  ak interlace
  ak interlace --period 2026-09 --kind fix
  ak interlace --all-periods --author alice --author bob`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInterlace(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Period, "period", "p", "", "period, YYYY-MM (default: current month)")
	cmd.Flags().Bool("all-periods", false, "merge cubes from every period")
	cmd.Flags().StringSliceVarP(&opts.Authors, "author", "a", nil, "only these authors (repeatable)")
	opts.filter.register(cmd)
	registerTimeFlag(cmd)
	return cmd
}

func runInterlace(opts *InterlaceOptions, cmd *cobra.Command) error {
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
	filter.Authors = opts.Authors

	period := opts.Period
	if all, _ := cmd.Flags().GetBool("all-periods"); all {
		period = ""
	} else if period == "" {
		period = string(r.CurrentPeriod())
	}

	merged, err := r.Interlace(period, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "interlace failed", err)
	}

	faults := make([]InterlaceFault, 0, len(merged.Faults))
	for _, fault := range merged.Faults {
		faults = append(faults, InterlaceFault{Cube: fault.Cube.Key(), Kept: fault.Kept, Message: fault.Message()})
	}

	if opts.Format == "json" {
		response := CLIResponse{
			Status: "ok",
			Data: map[string]any{
				"entries": merged.Entries,
				"faults":  faults,
			},
		}
		if len(faults) > 0 {
			response.Status = "error"
			code, _ := describe(merged.Faults[0].Err)
			response.Error = &CLIError{Code: code, Message: "one or more cubes could not be replayed", Details: faults}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, e := range merged.Entries {
			fmt.Fprintf(w, "%-8s %s\n", e.Cube.Author, timeline.RenderLine(e.Event, mode, loc))
		}
		if len(merged.Entries) == 0 {
			fmt.Fprintln(w, "No commits.")
		}
		for _, fault := range faults {
			fmt.Fprintf(w, "✗ %s: stopped after %d commits: %s\n", fault.Cube, fault.Kept, fault.Message)
		}
	}

	if len(faults) > 0 {
		return &ExitError{Code: ExitFailure, Message: "one or more cubes could not be replayed", Reported: true}
	}
	return nil
}
