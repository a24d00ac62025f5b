package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/genesis/internal/manifest"
	"github.com/roach88/genesis/internal/mapper"
	"github.com/roach88/genesis/internal/query"
	"github.com/roach88/genesis/internal/schema"
)

// Exit codes. A command that ran but whose operation the model or the store
// refused exits with ExitFailure; a command that could not run at all
// (bad manifest, unreadable records, unreachable store) exits with
// ExitCommandError.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// Error codes raised by the CLI itself. Manifest, schema and mapper errors
// carry their own codes into the response.
const (
	ErrCodeGeneric = "ERROR"
	ErrCodeConfig  = "CONFIG"
	ErrCodeInput   = "INPUT"
	ErrCodeUnknown = "UNKNOWN_MODEL"
)

// ExitError is returned by every command that has already reported its
// failure. Message holds the response error code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// WrapExitError tags err with an exit code and a response error code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the process exit code for a command error. Errors
// that are not ExitErrors map to ExitFailure.
func GetExitCode(err error) int {
	if exitErr := (*ExitError)(nil); errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON CLIResponse.
// Diagnostics from VerboseLog go to ErrWriter so JSON on Writer stays
// parseable.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command: {"status":"ok","data":...}
// on success, {"status":"error","error":{...}} on failure.
type CLIResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError describes a failed command. Code is a manifest, schema, mapper
// or CLI error code such as CYCLE, VALIDATION or ALREADY_EXISTS; Details
// holds the source position or offending field when known.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Success writes data: wrapped in an "ok" response for JSON, printed with
// its default format for text.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format != "json" {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
}

// Error writes a failure. Text output is "Error [CODE]: message", followed
// by the details in verbose mode.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a progress line for each stored instance when --verbose
// is set.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if f.Verbose {
		fmt.Fprintf(f.diag(), format+"\n", args...)
	}
}

func (f *OutputFormatter) diag() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports err in the configured format and returns the ExitError the
// command should return.
func (f *OutputFormatter) Fail(err error) error {
	code, exit := classifyError(err)
	message := err.Error()
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err != nil {
		message = exitErr.Err.Error()
	}
	_ = f.Error(code, message, errorDetails(err))
	return WrapExitError(exit, code, err)
}

// inputError marks err as a problem with the command's arguments or input
// files.
func inputError(err error) error {
	return WrapExitError(ExitCommandError, ErrCodeInput, err)
}

// classifyError maps err to an error code and exit code.
func classifyError(err error) (string, int) {
	var (
		exitErr     *ExitError
		manifestErr *manifest.Error
		schemaErr   *schema.Error
		mapperErr   *mapper.Error
	)
	switch {
	case errors.As(err, &manifestErr):
		return string(manifestErr.Code), ExitCommandError
	case errors.As(err, &exitErr):
		return exitErr.Message, exitErr.Code
	case errors.Is(err, query.ErrInvalidQuery):
		return ErrCodeInput, ExitCommandError
	case errors.As(err, &mapperErr):
		if mapperErr.Code == mapper.ErrCodeBackend {
			return string(mapperErr.Code), ExitCommandError
		}
		return string(mapperErr.Code), ExitFailure
	case errors.As(err, &schemaErr):
		return string(schemaErr.Code), ExitFailure
	default:
		return ErrCodeGeneric, ExitFailure
	}
}

// errorDetails returns structured context for err, if any.
func errorDetails(err error) interface{} {
	var manifestErr *manifest.Error
	if errors.As(err, &manifestErr) && manifestErr.Pos.IsValid() {
		return map[string]interface{}{
			"file":   manifestErr.Pos.Filename(),
			"line":   manifestErr.Pos.Line(),
			"column": manifestErr.Pos.Column(),
		}
	}
	var schemaErr *schema.Error
	if errors.As(err, &schemaErr) && schemaErr.Field != "" {
		return map[string]interface{}{"field": schemaErr.Field}
	}
	return nil
}
