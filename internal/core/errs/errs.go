// Package errs defines the error kinds surfaced across the media database.
// Callers match them with errors.Is; adapters wrap them with context.
package errs

import "errors"

var (
	// ErrNotFound is returned by reads against an id or hash with no record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidContent is returned when a content update violates a service's domain rules.
	ErrInvalidContent = errors.New("invalid content")

	// ErrConflict is returned when a registry write would break key uniqueness.
	ErrConflict = errors.New("conflict")

	// ErrStorageFailure wraps failures of the underlying persistence.
	ErrStorageFailure = errors.New("storage failure")

	// ErrSuperseded is returned by a query that a newer query on the same input replaced.
	ErrSuperseded = errors.New("superseded by a newer query")
)
