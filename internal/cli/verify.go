package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/akasha/internal/cube"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	cube cubeFlags
	All  bool
}

// VerifyResult holds the reports of a verify run.
type VerifyResult struct {
	Reports []cube.Report `json:"reports"`
	Healthy bool          `json:"healthy"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check cube integrity",
		Long: `Read cubes end to end, checking every frame checksum, every record and the
parent chain. A fault in one cube does not stop the others with --all.

Exit codes:
  0 - Every cube is intact
  1 - A cube is corrupt or ends in a trailing fragment
  2 - Command error

Examples:
  ak verify
  ak verify --all --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	opts.cube.register(cmd)
	cmd.Flags().BoolVar(&opts.All, "all", false, "verify every cube in the repository")
	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	r, err := opts.openRepo(cmd)
	if err != nil {
		return err
	}

	var reports []cube.Report
	if opts.All {
		reports, err = r.VerifyAll()
	} else {
		period, author := opts.cube.resolve(r)
		var rep cube.Report
		rep, err = r.Verify(period, author)
		reports = []cube.Report{rep}
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "verify failed", err)
	}

	result := VerifyResult{Reports: reports, Healthy: true}
	for _, rep := range reports {
		if !rep.OK() {
			result.Healthy = false
		}
	}

	if opts.Format == "json" {
		return outputVerifyJSON(cmd, result)
	}
	return outputVerifyText(cmd.OutOrStdout(), result)
}

func outputVerifyJSON(cmd *cobra.Command, result VerifyResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if !result.Healthy {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    string(firstFaultCode(result.Reports)),
			Message: "integrity verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}
	if !result.Healthy {
		return &ExitError{Code: ExitFailure, Message: "integrity verification failed", Reported: true}
	}
	return nil
}

func outputVerifyText(w io.Writer, result VerifyResult) error {
	if len(result.Reports) == 0 {
		fmt.Fprintln(w, "No cubes found.")
		return nil
	}

	for _, rep := range result.Reports {
		status := "✓"
		if !rep.OK() {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %s: %d records", status, rep.Cube.Key(), rep.Records)
		if rep.Records > 0 {
			fmt.Fprintf(w, ", last #%d", rep.LastID)
		}
		if rep.Cube.Legacy {
			fmt.Fprint(w, " (legacy, read-only)")
		}
		fmt.Fprintln(w)

		if rep.Fault != nil {
			fmt.Fprintf(w, "  %s\n", rep.Fault.Error())
		}
		if rep.Tail != nil {
			fmt.Fprintf(w, "  %d byte trailing fragment at offset %d (run ak repair)\n", rep.Tail.Size, rep.Tail.Offset)
		}
	}

	if result.Healthy {
		fmt.Fprintf(w, "✓ %d cube(s) verified\n", len(result.Reports))
		return nil
	}
	fmt.Fprintln(w, "✗ Integrity verification failed")
	return &ExitError{Code: ExitFailure, Message: "integrity verification failed", Reported: true}
}

func firstFaultCode(reports []cube.Report) cube.Code {
	for _, rep := range reports {
		if rep.Fault != nil {
			return rep.Fault.Code
		}
	}
	return cube.CodeTruncatedTail
}
