package domain

import "errors"

// Sentinel errors shared across the domain. Repositories translate driver
// errors into these; controllers map them to HTTP status codes.
var (
	// ErrNotFound means the requested record does not exist. For conference
	// lookups this is not a failure: the admission pipeline represents it as
	// an absent context slot and leaves the interpretation to later stages.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a request is structurally valid but
	// semantically wrong (e.g. updating a member field that is not updatable).
	ErrInvalidInput = errors.New("invalid input")
)
