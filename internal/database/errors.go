package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file is
	// missing and creation is disabled.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("run not found")
)
