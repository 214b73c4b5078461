package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for malformed caller input (e.g. a manual coin entry).
// It is recoverable: the caller may correct the input and retry.
var ErrInvalidInput = errors.New("invalid input")

// ErrMalformedPattern is returned when a pattern is not six single bits.
var ErrMalformedPattern = errors.New("malformed pattern")

// ErrUnknownPattern is returned when a pattern matches no hexagram.
// Reaching it means the tables or the assembler are corrupted.
var ErrUnknownPattern = errors.New("unknown pattern")

// ErrMissingTranslation is returned when no localized record exists after fallback.
var ErrMissingTranslation = errors.New("missing translation")

// ErrIncompleteCast is returned when the pattern is read before six tosses landed.
var ErrIncompleteCast = errors.New("cast incomplete")

// ErrCastComplete is returned when a toss is added to a finished cast.
var ErrCastComplete = errors.New("cast already complete")

// ErrInvalidTransition is returned when an operation is not allowed in the current phase.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrStaleResult is returned when a collaborator answers after the session was reset.
var ErrStaleResult = errors.New("stale result discarded")

// ErrUnauthenticated is returned when an operation needs a caller identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// InvalidInputError describes a rejected value.
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s: %s (got %v)", e.Field, e.Reason, e.Value)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// NewInvalidInput builds an InvalidInputError.
func NewInvalidInput(field string, value any, reason string) error {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}

// CollaboratorError wraps a failure of an external collaborator.
// The session keeps its phase and resolved reading when one occurs.
type CollaboratorError struct {
	Effect Effect
	Err    error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Effect, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
