package asset

import "errors"

var (
	// ErrInvalidKey is returned by sinks for keys that would escape the
	// storage root.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrNotFound is returned by MemorySink.Get for unknown keys.
	ErrNotFound = errors.New("object not found")
)
