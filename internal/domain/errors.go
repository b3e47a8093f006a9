package domain

import (
	"errors"
	"fmt"
)

// Error codes reported back to the originating connection.
const (
	ErrCodeValidation        = "VALIDATION"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodePersistence       = "PERSISTENCE"
	ErrCodeBadRequest        = "BAD_REQUEST"
)

// ValidationError reports a missing or malformed required field. The request
// is rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// InvalidTransitionError reports a state machine guard failure. The session is
// left exactly as it was.
type InvalidTransitionError struct {
	From Status
	Op   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s not permitted from %s", e.Op, e.From)
}

// NotFoundError reports a referenced session or volunteer that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// PersistenceError wraps a failed session store operation. In-memory state
// must not have been committed when one of these is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrorCode maps an error to its wire code for the structured error event.
func ErrorCode(err error) string {
	var (
		ve *ValidationError
		te *InvalidTransitionError
		ne *NotFoundError
		pe *PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		return ErrCodeValidation
	case errors.As(err, &te):
		return ErrCodeInvalidTransition
	case errors.As(err, &ne):
		return ErrCodeNotFound
	case errors.As(err, &pe):
		return ErrCodePersistence
	default:
		return ErrCodeBadRequest
	}
}
