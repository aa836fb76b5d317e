// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// # Security Features
//
// The SecureHandler sanitizes log output before it reaches the writer:
//   - HTTP headers and config values such as Cookie and Authorization
//   - Values that look like tokens or API keys
//   - User info and signed query parameters in URLs, e.g. pre-signed
//     object storage links found in image sources
//
// Content hashes and job IDs are long alphanumeric strings by nature; they
// are logged under the "hash" and "id" style keys and left readable.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("media download failed",
//	    "url", "https://cdn.acme.test/logo.png?X-Amz-Signature=abc", // signature masked
//	    "cookie", "session=abc123",                                  // masked
//	)
//	slog.SetDefault(logger)
package log
