package cli

import (
	"errors"
	"io"
)

// Run executes ak with args and returns the process exit code. Errors are
// written to stdout as a JSON envelope with --format json, otherwise to
// stderr.
func Run(args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{Format: "text"}
	return run(opts, args, stdout, stderr)
}

func run(opts *RootOptions, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		return exitErr.Code
	}

	f := &OutputFormatter{Format: opts.Format, Writer: stderr, Verbose: opts.Verbose}
	if f.Format == "json" {
		f.Writer = stdout
	} else {
		f.Format = "text"
	}
	_ = f.Fail(err)
	return GetExitCode(err)
}
