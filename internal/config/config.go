package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/brandscan/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "brandscan"

	// DefaultTimeout bounds one request including its body.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxDepth of 3 reaches the pages that usually carry brand
	// content (home, about, products) without walking a whole blog.
	DefaultMaxDepth = 3

	// DefaultMaxPages caps the number of fetched pages per target.
	DefaultMaxPages = 100

	// DefaultMaxMedia caps the number of media URLs downloaded per target.
	DefaultMaxMedia = 200

	// DefaultCrawlDelay is the spacing between page fetches.
	// 1 second is conservative and respectful of server resources.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultMaxBodySize limits how much of an HTML page is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultMaxImageSize rejects larger media downloads.
	DefaultMaxImageSize = 20 * 1024 * 1024 // 20MB

	// DefaultConcurrency is the number of media downloads in flight.
	DefaultConcurrency = 1

	// DefaultBatchSize is the number of targets extracted at the same time.
	DefaultBatchSize = 2

	// DefaultOutputDir is where runs are written when --output is not given.
	DefaultOutputDir = "scraped_assets"

	// DefaultUserAgent identifies brandscan in HTTP requests.
	DefaultUserAgent = "brandscan/1.0 (+https://github.com/nao1215/brandscan)"
)

// Config holds all configuration options for brandscan.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Targets are the seed URLs to extract. A missing scheme is completed
	// with https://.
	Targets []string

	// Timeout is the per-request timeout for pages, robots.txt and media.
	Timeout time.Duration

	// MaxDepth is the maximum link distance from the seed.
	// Depth 0 means only fetch the seed page.
	MaxDepth int

	// MaxPages is the maximum number of pages fetched per target.
	MaxPages int

	// MaxMedia is the maximum number of media URLs downloaded per target.
	// Zero means no cap.
	MaxMedia int

	// CrawlDelay is the minimum spacing between two page fetches.
	CrawlDelay time.Duration

	// MaxBodySize is the maximum HTML body size in bytes to read.
	MaxBodySize int64

	// MaxImageSize is the largest accepted media download in bytes.
	MaxImageSize int64

	// Concurrency is the number of media downloads in flight per target.
	Concurrency int

	// BatchSize is the number of targets processed concurrently.
	BatchSize int

	// SkipVideos disables recording video references.
	SkipVideos bool

	// OptimizeImages enables re-encoding raster images as bounded JPEGs.
	OptimizeImages bool

	// SameDomain restricts the crawl to the exact seed host. When false,
	// sibling subdomains of the registrable domain are crawled too.
	SameDomain bool

	// RespectRobots skips URLs that robots.txt disallows. When false,
	// disallowed URLs are logged and crawled anyway.
	RespectRobots bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// ProxyAddress routes requests through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// OutputDir is the parent directory of the per-target run directories.
	OutputDir string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// NoColor disables colored console output.
	NoColor bool

	// ConfigFilePath is the path to the configuration file. When empty,
	// FindConfigFile searches the usual locations.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport writes the report as JSON.
	JSONReport bool

	// MarkdownReport writes the report as GitHub Flavored Markdown.
	MarkdownReport bool

	// XLSXReport writes the report as an Excel workbook. It requires
	// ReportFile because the format is binary.
	XLSXReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory of the SQLite history database.
	// Defaults to XDG data directory (~/.local/share/brandscan on Linux).
	DBDir string

	// SaveToDB stores every finished run in the history database.
	SaveToDB bool

	// SkipRecent skips targets whose domain has a recorded run younger
	// than this. Zero disables the check.
	SkipRecent time.Duration
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, page
// budget). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:        DefaultTimeout,
		MaxDepth:       DefaultMaxDepth,
		MaxPages:       DefaultMaxPages,
		MaxMedia:       DefaultMaxMedia,
		CrawlDelay:     DefaultCrawlDelay,
		MaxBodySize:    DefaultMaxBodySize,
		MaxImageSize:   DefaultMaxImageSize,
		Concurrency:    DefaultConcurrency,
		BatchSize:      DefaultBatchSize,
		OptimizeImages: true,
		SameDomain:     true,
		UserAgent:      DefaultUserAgent,
		OutputDir:      DefaultOutputDir,
	}
}

// XDGDataDir returns the XDG data directory for brandscan.
// On Linux: ~/.local/share/brandscan
// On macOS: ~/Library/Application Support/brandscan
// On Windows: %LOCALAPPDATA%\brandscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for brandscan. The last
// configuration file candidate, config.yaml, lives here.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for brandscan.
// The HTTP API writes the run directories of its jobs here.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// RobotsStance converts RespectRobots into the crawler's stance.
func (c *Config) RobotsStance() model.RobotsStance {
	if c.RespectRobots {
		return model.RobotsRespect
	}
	return model.RobotsWarn
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// We return the first error found because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.ValidateSettings()
}

// ValidateSettings checks every field except Targets. The API server uses
// it since its targets arrive with each request.
func (c *Config) ValidateSettings() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}
	if c.MaxMedia < 0 {
		return ErrInvalidMaxMedia
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 || c.MaxImageSize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.SkipRecent < 0 {
		return ErrInvalidSkipRecent
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	formats := 0
	for _, on := range []bool{c.JSONReport, c.MarkdownReport, c.XLSXReport} {
		if on {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}
	if c.XLSXReport && c.ReportFile == "" {
		return ErrXLSXNeedsFile
	}

	return nil
}
