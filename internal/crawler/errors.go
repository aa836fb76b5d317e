package crawler

import "errors"

var (
	// ErrSeedUnreachable is returned when the start page itself cannot be
	// fetched. The partial result is returned alongside it.
	ErrSeedUnreachable = errors.New("start page is unreachable")

	// ErrNotHTML is recorded for responses that are not HTML documents.
	ErrNotHTML = errors.New("response is not an HTML document")
)
