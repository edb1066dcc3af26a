package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/akasha/internal/repo"
)

// InitResult is the init command output.
type InitResult struct {
	DataDir string `json:"data_dir"`
	Config  string `json:"config"`
	Author  string `json:"author"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the ak data directory",
		Long: `Create the data directory skeleton and a config.yaml recording the
author identity. The identity comes from --username, AK_USERNAME, .env or an
existing config.yaml. Running init again is harmless.

Examples:
  ak init --username alice --email alice@example.com
  AK_USERNAME=alice ak init --data-dir .history`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig(cmd)
			if err != nil {
				return err
			}
			r, err := repo.Init(rootOpts.Repo, cfg, rootOpts.repoOptions()...)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to initialize repository", err)
			}

			res := InitResult{DataDir: r.Layout.Root, Config: r.Layout.ConfigPath(), Author: r.Identity.Author}
			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(res)
			}
			return f.Success(fmt.Sprintf("Initialized ak repository in %s for %s", res.DataDir, res.Author))
		},
	}
}
