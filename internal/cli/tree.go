package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewInscribeCommand creates the inscribe command.
func NewInscribeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inscribe",
		Short: "Snapshot the working tree",
		Long: `Record a content-addressed manifest of the working tree and make it the
author's current snapshot. Hidden entries, the data directory and paths
matched by .gitignore, .ignore or the configured ignore patterns are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rootOpts.openRepo(cmd)
			if err != nil {
				return err
			}
			s, err := r.Inscribe()
			if err != nil {
				return WrapExitError(ExitCommandError, "inscribe failed", err)
			}

			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(s.Ref())
			}
			return f.Success(fmt.Sprintf("Inscribed %s: %d files, fingerprint %s", s.ID, len(s.Files), s.Fingerprint))
		},
	}
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "List files changed since the current snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rootOpts.openRepo(cmd)
			if err != nil {
				return err
			}
			changes, err := r.Diff()
			if err != nil {
				return WrapExitError(ExitCommandError, "diff failed", err)
			}

			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(changes)
			}
			w := cmd.OutOrStdout()
			if changes.Empty() {
				fmt.Fprintln(w, "No changes.")
				return nil
			}
			for _, p := range changes.Added {
				fmt.Fprintf(w, "A %s\n", p)
			}
			for _, p := range changes.Modified {
				fmt.Fprintf(w, "M %s\n", p)
			}
			for _, p := range changes.Removed {
				fmt.Fprintf(w, "D %s\n", p)
			}
			return nil
		},
	}
}
