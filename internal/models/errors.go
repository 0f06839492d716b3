package models

import "errors"

// Sentinel errors shared across repositories, services and handlers.
// Handlers map these to HTTP statuses with errors.Is; everything else
// falls through as an internal error.
var (
	// ErrNotFound: the referenced user, plant or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyProcessed: a replayed transaction or duplicate same-day
	// submission. Benign; callers return the previously stored result.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrRateLimited: the scan window is exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrLocationMismatch: the submitted GPS fix falls outside the plant's
	// reference radius.
	ErrLocationMismatch = errors.New("location mismatch")

	// ErrValidation: malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
)
