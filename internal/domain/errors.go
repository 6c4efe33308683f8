package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput signals a request value that failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidGeometry signals a viewport or polygon the backend cannot evaluate.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrInvalidCondition signals a filter condition that failed validation.
	ErrInvalidCondition = errors.New("invalid condition")
	// ErrMarkerCountMismatch signals that reconciliation left markers and buckets out of step.
	ErrMarkerCountMismatch = errors.New("marker count does not match bucket count")
	// ErrResponseCountMismatch signals a batched query answered with the wrong number of responses.
	ErrResponseCountMismatch = errors.New("response count does not match request count")
	// ErrCursorClosed signals use of a cursor after Close.
	ErrCursorClosed = errors.New("cursor closed")
	// ErrCursorExpired signals a cursor whose keep-alive elapsed.
	ErrCursorExpired = errors.New("cursor expired")
	// ErrSessionNotFound signals an unknown or expired map session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrBatchTooLarge signals a bulk request above the configured limit.
	ErrBatchTooLarge = errors.New("batch too large")
)

// CountMismatchError carries both sides of a count invariant violation.
type CountMismatchError struct {
	Sentinel error
	Want     int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("%s: want %d, got %d", e.Sentinel.Error(), e.Want, e.Got)
}

func (e *CountMismatchError) Unwrap() error { return e.Sentinel }

// NewCountMismatch creates a count invariant error wrapping sentinel.
func NewCountMismatch(sentinel error, want, got int) error {
	return &CountMismatchError{Sentinel: sentinel, Want: want, Got: got}
}
