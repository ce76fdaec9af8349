package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyLogBase indicates Run was called without a log path prefix
	ErrEmptyLogBase = errors.New("log base cannot be empty")

	// ErrEmptySpecFile indicates Run was called without a parameter-schema file
	ErrEmptySpecFile = errors.New("spec file cannot be empty")

	// ErrEmptyOutputID indicates the parameter document has no output identifier
	ErrEmptyOutputID = errors.New("params output_file cannot be empty")

	// ErrSpecNotFound indicates no spec directory holds the app's schema file
	ErrSpecNotFound = errors.New("parameter-schema file not found")
)

// ExitError wraps an abnormal pipeline exit
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline failed (exit %d): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("pipeline failed (exit %d)", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError
func NewExitError(code int, err error) *ExitError {
	return &ExitError{
		Code: code,
		Err:  err,
	}
}
