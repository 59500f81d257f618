package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/cadbridge/internal/wire"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario failures, or a bridge response with ok=false
	ExitCommandError = 2 // Command error (invalid paths, bad config, unreachable bridge, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Report is what a command prints in JSON mode: the same {ok, message,
// data} envelope the bridge answers with, plus where it came from.
type Report struct {
	wire.Response
	JobID      string `json:"job_id,omitempty"`      // from X-Bridge-Job
	HTTPStatus int    `json:"http_status,omitempty"` // set by invoke only
}

// OutputFormatter renders reports as JSON or text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// Print renders r. Text mode prints the message of a failure, or the data
// of a success (strings verbatim, anything else as indented JSON).
func (f *OutputFormatter) Print(r Report) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	if !r.OK {
		fmt.Fprintf(f.Writer, "Error: %s\n", r.Message)
		if f.Verbose && r.Data != nil {
			fmt.Fprintf(f.Writer, "Details: %v\n", r.Data)
		}
		return nil
	}
	switch d := r.Data.(type) {
	case nil:
		fmt.Fprintln(f.Writer, r.Message)
	case string:
		fmt.Fprintln(f.Writer, d)
	default:
		pretty, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		fmt.Fprintln(f.Writer, string(pretty))
	}
	return nil
}

// OK prints a successful report carrying data.
func (f *OutputFormatter) OK(data any) error {
	return f.Print(Report{Response: wire.OK(data)})
}

// Fail prints a failed report. data, when present, is kept so JSON
// consumers still see partial results.
func (f *OutputFormatter) Fail(err error, data any) error {
	resp := wire.Fail(err)
	resp.Data = data
	return f.Print(Report{Response: resp})
}

// VerboseLog writes a diagnostic line when verbose mode is on. It never
// goes to Writer unless ErrWriter is unset, so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
