package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/repo"
	"github.com/roach88/akasha/internal/timeline"
)

// SealOptions holds flags for the seal command.
type SealOptions struct {
	*RootOptions
	Kind       string
	Summary    string
	Body       string
	Repair     bool
	NoSnapshot bool
}

// NewSealCommand creates the seal command.
func NewSealCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SealOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Record a commit in the current cube",
		Long: `Seal a new commit event into this month's cube for the current author.

The working tree is inscribed and referenced from the commit unless
--no-snapshot is given or snapshot is false in config.yaml.

If the cube ends in a fragment left by an interrupted append, seal refuses
with TRUNCATED_TAIL. Pass --repair (or set auto_repair) to truncate the
fragment first. A concurrent writer yields CONCURRENT_WRITE; retry.

Exit codes:
  0 - Commit sealed
  1 - Cube is corrupt or ends in a fragment
  2 - Command error (no identity, lock held, etc.)

Examples:
  ak seal --kind feat --summary "add parser"
  ak seal -k fix -m "handle empty input" -b "Empty files no longer crash."`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeal(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Kind, "kind", "k", "", "commit kind, e.g. feat, fix, docs (required)")
	_ = cmd.MarkFlagRequired("kind")
	cmd.Flags().StringVarP(&opts.Summary, "summary", "m", "", "one-line summary")
	cmd.Flags().StringVarP(&opts.Body, "body", "b", "", "longer description")
	cmd.Flags().BoolVar(&opts.Repair, "repair", false, "truncate a trailing fragment before appending")
	cmd.Flags().BoolVar(&opts.NoSnapshot, "no-snapshot", false, "do not inscribe the working tree")

	return cmd
}

func runSeal(opts *SealOptions, cmd *cobra.Command) error {
	r, err := opts.openRepo(cmd)
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)

	kind := strings.TrimSpace(opts.Kind)
	if !slices.Contains(r.Config.Kinds, kind) {
		f.VerboseLog("kind %q is not in the configured kinds %v", kind, r.Config.Kinds)
	}

	res, err := r.Seal(event.Draft{
		Kind:    kind,
		Summary: opts.Summary,
		Body:    opts.Body,
	}, repo.SealOptions{
		Repair:   opts.Repair,
		Snapshot: r.Config.Snapshot && !opts.NoSnapshot,
	})
	if err != nil {
		return integrityError("seal failed", err)
	}

	if f.Format == "json" {
		return f.Success(res)
	}

	mode, err := opts.timeMode(cmd, r)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if res.Repair != nil && res.Repair.Truncated {
		fmt.Fprintf(w, "Repaired %s: removed %d trailing bytes\n", res.Cube.Key(), res.Repair.Removed)
	}
	fmt.Fprintf(w, "Sealed %s\n", timeline.RenderLine(res.Event, mode, opts.location()))
	f.VerboseLog("cube %s offset %d end %d", res.Cube.Key(), res.Append.Offset, res.Append.End)
	if res.Snapshot != nil {
		fmt.Fprintf(w, "  snapshot %s (%d files)\n", res.Snapshot.ID, len(res.Snapshot.Files))
	}
	return nil
}
