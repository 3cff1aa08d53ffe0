package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable wraps pool exhaustion, connection loss and other
	// persistence failures. The whole turn must be retried by the caller.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidInput is returned when a request is rejected before any work.
	ErrInvalidInput = errors.New("invalid input")
)
