package api

import "errors"

var (
	// ErrInvalidRequest is returned for a malformed scrape request body.
	ErrInvalidRequest = errors.New("invalid request body")

	// ErrLimitExceeded is returned when a request asks for more than the
	// server allows.
	ErrLimitExceeded = errors.New("requested limit exceeds server maximum")

	// ErrJobNotReady is returned when a download is requested before the
	// job has completed.
	ErrJobNotReady = errors.New("job has not completed")
)
