// Package pipeline defines the central report types for a trackgrid
// analyze-project run. This file defines the TrackgridError type for
// structured error handling with exit codes, enabling commands to
// communicate specific exit codes back to main.go.
package pipeline

import "fmt"

// TrackgridError is a custom error type that carries an exit code for
// structured error handling. Commands in the CLI use this to communicate
// specific exit codes back to main.go. It implements the error interface
// and supports unwrapping via errors.Is and errors.As. Every typed error
// in internal/keycodec, internal/gridcodec, internal/keymanager,
// internal/migration, and internal/tracker wraps into one of these at the
// CLI boundary.
type TrackgridError struct {
	// Code is the process exit code associated with this error.
	Code int

	// Message is a human-readable description of what went wrong.
	Message string

	// Err is the underlying error that caused this TrackgridError, if any.
	Err error
}

// Error returns the formatted error message. If an underlying error is present,
// it is included in the output separated by a colon.
func (e *TrackgridError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As to
// traverse the error chain.
func (e *TrackgridError) Unwrap() error {
	return e.Err
}

// NewError creates a TrackgridError with ExitError (1) code for fatal errors.
func NewError(msg string, err error) *TrackgridError {
	return &TrackgridError{Code: int(ExitError), Message: msg, Err: err}
}
