package domain

import "errors"

var (
	// ErrValidation marks caller input that failed validation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a lookup for a record that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a state transition that is no longer possible,
	// e.g. cancelling a delivery that already completed.
	ErrConflict = errors.New("conflict")

	// ErrRejected marks an inbound webhook refused before any record is created
	// (unknown endpoint, disallowed event, rate limit, bad signature).
	ErrRejected = errors.New("webhook rejected")
)
