package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/akasha/internal/index"
	"github.com/roach88/akasha/internal/timeline"
)

// NewIndexCommand creates the index command group.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the derived query cache",
		Long: `The index is a SQLite cache of every cube under the data directory's
cache/ folder. Cubes stay authoritative: the index is only read by
ak index query and can be deleted and rebuilt at any time.`,
	}
	cmd.AddCommand(newIndexRebuildCommand(rootOpts))
	cmd.AddCommand(newIndexQueryCommand(rootOpts))
	return cmd
}

func newIndexRebuildCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Repopulate the index from every cube",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rootOpts.openRepo(cmd)
			if err != nil {
				return err
			}
			stats, err := r.RebuildIndex(cmdContext(cmd))
			if err != nil {
				return WrapExitError(ExitCommandError, "index rebuild failed", err)
			}

			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(stats)
			}
			return f.Success(fmt.Sprintf("Indexed %d events from %d cubes (%d faults)", stats.Events, stats.Cubes, stats.Faults))
		},
	}
}

type indexQueryOptions struct {
	q     index.Query
	since string
	until string
}

func newIndexQueryCommand(rootOpts *RootOptions) *cobra.Command {
	var opts indexQueryOptions

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search the index",
		Long: `Search indexed commits across all cubes, ordered by timestamp then author.
Run ak index rebuild first; the index does not follow new seals.

Examples:
  ak index query --kind fix --limit 20
  ak index query --author bob --grep parser`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rootOpts.openRepo(cmd)
			if err != nil {
				return err
			}
			mode, err := rootOpts.timeMode(cmd, r)
			if err != nil {
				return err
			}
			loc := rootOpts.location()
			if opts.since != "" {
				if opts.q.Since, err = timeline.ParseInstant(opts.since, loc); err != nil {
					return WrapExitError(ExitCommandError, "invalid --since", err)
				}
			}
			if opts.until != "" {
				if opts.q.Until, err = timeline.ParseInstant(opts.until, loc); err != nil {
					return WrapExitError(ExitCommandError, "invalid --until", err)
				}
			}

			ix, err := r.OpenIndex()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open index", err)
			}
			defer ix.Close()

			ctx := cmdContext(cmd)
			rows, err := ix.Query(ctx, opts.q)
			if err != nil {
				return WrapExitError(ExitCommandError, "index query failed", err)
			}
			faults, err := ix.Faults(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "index query failed", err)
			}

			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(map[string]any{"rows": rows, "faults": faults})
			}
			w := cmd.OutOrStdout()
			for _, row := range rows {
				fmt.Fprintf(w, "%s/%-8s %s\n", row.Period, row.Author, timeline.RenderLine(row.Event, mode, loc))
			}
			if len(rows) == 0 {
				fmt.Fprintln(w, "No matching commits.")
			}
			for _, fault := range faults {
				fmt.Fprintf(w, "! %s/%s indexed partially: %s: %s\n", fault.Period, fault.Author, fault.Code, fault.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.q.Kind, "kind", "k", "", "only this kind")
	cmd.Flags().StringVarP(&opts.q.Author, "author", "a", "", "only this author")
	cmd.Flags().StringVarP(&opts.q.Period, "period", "p", "", "only this period")
	cmd.Flags().StringVarP(&opts.q.Text, "grep", "g", "", "only commits whose summary or body contains text")
	cmd.Flags().StringVar(&opts.q.ContentHash, "content-hash", "", "only commits with this content fingerprint")
	cmd.Flags().StringVar(&opts.since, "since", "", "only commits at or after this time")
	cmd.Flags().StringVar(&opts.until, "until", "", "only commits before this time")
	cmd.Flags().IntVarP(&opts.q.Limit, "limit", "n", 0, "maximum number of results")
	registerTimeFlag(cmd)
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
