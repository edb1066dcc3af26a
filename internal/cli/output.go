package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/akasha/internal/config"
	"github.com/roach88/akasha/internal/cube"
	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/repo"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Integrity failure (corruption, chain break, trailing fragment)
	ExitCommandError = 2 // Command error (bad flags, missing repository, lock held, etc.)
)

// Error codes used in the JSON envelope when the error carries no cube code.
const (
	CodeCommand       = "COMMAND_ERROR"
	CodeConfig        = "INVALID_CONFIG"
	CodeIdentity      = "NO_IDENTITY"
	CodeUninitialized = "NOT_INITIALIZED"
	CodeNotFound      = "NOT_FOUND"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set when the command already wrote its own error output.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Integrity errors map to ExitFailure, anything else unclassified to
// ExitCommandError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if cube.IsCorruption(err) || cube.IsTruncatedTail(err) {
		return ExitFailure
	}
	return ExitCommandError
}

// integrityError wraps a cube error with the exit code its class calls for.
func integrityError(message string, err error) *ExitError {
	if cube.IsCorruption(err) || cube.IsTruncatedTail(err) {
		return WrapExitError(ExitFailure, message, err)
	}
	return WrapExitError(ExitCommandError, message, err)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // cube code such as "CORRUPT_RECORD", or a CLI code
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err through Error, deriving the code and details from it.
func (f *OutputFormatter) Fail(err error) error {
	code, details := describe(err)
	return f.Error(code, err.Error(), details)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// describe maps an error to an envelope code and optional details.
func describe(err error) (string, any) {
	var ce *cube.Error
	if errors.As(err, &ce) {
		return string(ce.Code), ce
	}
	var ve *config.ValidationError
	switch {
	case errors.As(err, &ve):
		return CodeConfig, ve.Problems
	case errors.Is(err, event.ErrNoIdentity):
		return CodeIdentity, nil
	case errors.Is(err, repo.ErrNotInitialized):
		return CodeUninitialized, nil
	case errors.Is(err, cube.ErrNotFound):
		return CodeNotFound, nil
	}
	return CodeCommand, nil
}
