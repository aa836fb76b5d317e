// Package fetcher performs single HTTP GET requests for the crawler and
// the asset pipeline.
//
// Every request carries a timeout, reads at most a configured number of
// bytes, and fails with a typed *Error whose Kind tells the caller whether
// the server answered with a bad status, the connection failed, or the
// request timed out. Nothing is retried: a failed URL is counted by the
// caller and never requested again.
//
// The HTTP client can optionally route through a SOCKS5 proxy and inject a
// cookie and extra headers for sites that need them.
package fetcher
