package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrInvalidProxyAddress is returned when the proxy address is not in
// "host:port" format.
var ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

// ErrBodyTooLarge is wrapped by an Error of KindTooLarge.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Kind classifies a fetch failure.
type Kind string

// Fetch failure kinds.
const (
	KindTimeout    Kind = "timeout"
	KindCanceled   Kind = "canceled"
	KindConnection Kind = "connection"
	KindStatus     Kind = "status"
	KindRead       Kind = "read"
	KindTooLarge   Kind = "too_large"
)

// Error is returned for every failed fetch.
type Error struct {
	// URL is the requested URL.
	URL string

	// Kind classifies the failure.
	Kind Kind

	// StatusCode is set for KindStatus.
	StatusCode int

	// Err is the underlying error, nil for KindStatus.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsCanceled reports whether err is a fetch failure caused by the caller
// cancelling its context.
func IsCanceled(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == KindCanceled
	}
	return errors.Is(err, context.Canceled)
}

// classify maps a transport error to a Kind.
func classify(ctx context.Context, err error) Kind {
	if errors.Is(ctx.Err(), context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindConnection
}
