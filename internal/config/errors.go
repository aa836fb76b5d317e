package config

import "errors"

// Validation errors returned by Config.Validate and Config.ValidateSettings.
// The CLI prints them as is, so each message names the flag's rule.
var (
	// ErrNoTarget is returned when no target URL is given.
	ErrNoTarget = errors.New("no target specified: provide at least one URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxDepth is returned when the depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxPages is returned when the page budget is below one.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be at least 1")

	// ErrInvalidMaxMedia is returned when the media budget is negative.
	// Use 0 for no cap.
	ErrInvalidMaxMedia = errors.New("invalid max media: must be non-negative")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// Zero disables pacing.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when a size limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidSkipRecent is returned when --skip-recent is negative.
	ErrInvalidSkipRecent = errors.New("invalid skip-recent duration: must be non-negative")

	// ErrInvalidConcurrency is returned when the download concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --markdown and --xlsx is specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: choose one of --json, --markdown or --xlsx")

	// ErrXLSXNeedsFile is returned when --xlsx is used without --report-file.
	ErrXLSXNeedsFile = errors.New("xlsx report requires --report-file")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)

// ErrInvalidSiteDelay is returned when a site section has an unparsable delay.
var ErrInvalidSiteDelay = errors.New("invalid site delay")
