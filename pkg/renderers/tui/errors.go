package tui

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formschema/pkg/errorschema"
)

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrValidationFailed is matched by errors.Is when the collected data
	// still fails validation after the last attempt.
	ErrValidationFailed = errors.New("tui: form data did not validate")
)

// ValidationError carries the errors of the last failed submission.
type ValidationError struct {
	Attempts int
	Errors   []errorschema.ValidationError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tui: form data still has %d error(s) after %d attempt(s)", len(e.Errors), e.Attempts)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
