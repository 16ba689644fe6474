package engine

import (
	"context"
	"errors"
	"fmt"
)

// RunError represents an error that stopped a run.
//
// Run errors include:
//   - Adapter setup: the adapter could not be initialized
//   - Storage IO: a load or flush failed, so knowledge could be lost
//   - Interrupted: the run was cancelled (graceful, not a failure)
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, if one was started.
	RunID string

	// Err is the underlying cause.
	Err error
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeAdapterSetup indicates the adapter failed to initialize.
	ErrCodeAdapterSetup RunErrorCode = "ADAPTER_SETUP"

	// ErrCodeStorageIO indicates the store could not be written.
	ErrCodeStorageIO RunErrorCode = "STORAGE_IO"

	// ErrCodeInterrupted indicates user or OS cancellation.
	ErrCodeInterrupted RunErrorCode = "INTERRUPTED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RunID != "" {
		msg += fmt.Sprintf(" (run=%s)", e.RunID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

func newRunError(code RunErrorCode, runID, message string, err error) *RunError {
	return &RunError{Code: code, Message: message, RunID: runID, Err: err}
}

func hasCode(err error, code RunErrorCode) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsSetupError returns true if the run failed during adapter setup.
func IsSetupError(err error) bool {
	return hasCode(err, ErrCodeAdapterSetup)
}

// IsStorageError returns true if the run failed to persist knowledge.
func IsStorageError(err error) bool {
	return hasCode(err, ErrCodeStorageIO)
}

// IsInterrupted returns true for cancellation, whether reported as a
// RunError or as a bare context error.
func IsInterrupted(err error) bool {
	if hasCode(err, ErrCodeInterrupted) {
		return true
	}
	return errors.Is(err, context.Canceled)
}
