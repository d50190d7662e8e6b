package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation targets an unknown gallery id
	ErrNotFound = errors.New("gallery item not found")

	// ErrQueueClosed is returned by WriteQueue.Do after Close
	ErrQueueClosed = errors.New("write queue closed")
)

// ValidationError reports caller input that violates an operation's
// contract. Persisted state is unchanged when it is returned.
type ValidationError struct {
	Op      string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(op, message string) *ValidationError {
	return &ValidationError{Op: op, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// WriteError wraps a failure to persist a store document.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
