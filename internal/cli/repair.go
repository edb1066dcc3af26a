package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	var cf cubeFlags

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Truncate a trailing fragment left by an interrupted append",
		Long: `Remove an incomplete final frame so the cube can be appended to again.
Valid records are never touched. Repair refuses to run when a cube is
corrupt before its end; such damage needs manual attention.

Exit codes:
  0 - Fragment removed, or nothing to do
  1 - Cube is corrupt before its end
  2 - Command error (lock held, legacy cube, etc.)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rootOpts.openRepo(cmd)
			if err != nil {
				return err
			}
			period, author := cf.resolve(r)

			res, err := r.Repair(period, author)
			if err != nil {
				return integrityError(fmt.Sprintf("repair %s/%s failed", period, author), err)
			}

			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(res)
			}
			if !res.Truncated {
				return f.Success(fmt.Sprintf("%s: nothing to repair", res.Cube.Key()))
			}
			return f.Success(fmt.Sprintf("%s: removed %d trailing bytes, cube now ends at %d",
				res.Cube.Key(), res.Removed, res.Offset))
		},
	}

	cf.register(cmd)
	return cmd
}
