package pipeline

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/brandscan/internal/asset"
	"github.com/nao1215/brandscan/internal/config"
)

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// Timeout bounds one page or media request.
	Timeout time.Duration

	// MaxBodySize is the maximum HTML body size in bytes.
	MaxBodySize int64

	// MaxImageSize is the largest accepted media download in bytes.
	MaxImageSize int64

	// MaxMedia caps the media URLs downloaded. Zero means no cap.
	MaxMedia int

	// Concurrency is the number of media downloads in flight.
	Concurrency int

	// SkipVideos disables recording video references.
	SkipVideos bool

	// OptimizeImages re-encodes raster images as bounded JPEGs.
	OptimizeImages bool

	// IgnorePatterns are URL path patterns to skip during crawling.
	IgnorePatterns []string

	// FollowPatterns are URL path patterns to follow during crawling.
	FollowPatterns []string

	// MediaFilter drops media URLs before they are recorded.
	MediaFilter func(string) bool

	// Progress receives crawl and asset progress.
	Progress ProgressFunc

	// History stores finished runs when set.
	History RunSaver

	// Logger is passed to every step.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineUserAgent sets the User-Agent header for HTTP requests.
func WithPipelineUserAgent(userAgent string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UserAgent = userAgent
	}
}

// WithPipelineTimeout sets the per-request timeout.
func WithPipelineTimeout(d time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Timeout = d
	}
}

// WithPipelineMaxBodySize sets the maximum HTML body size in bytes.
func WithPipelineMaxBodySize(maxBodySize int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxBodySize = maxBodySize
	}
}

// WithPipelineMaxImageSize sets the largest accepted media download.
func WithPipelineMaxImageSize(n int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxImageSize = n
	}
}

// WithPipelineMaxMedia caps the number of media URLs downloaded.
func WithPipelineMaxMedia(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxMedia = n
	}
}

// WithPipelineConcurrency sets the number of media downloads in flight.
func WithPipelineConcurrency(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Concurrency = n
	}
}

// WithPipelineSkipVideos disables recording video references.
func WithPipelineSkipVideos(skip bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SkipVideos = skip
	}
}

// WithPipelineOptimizeImages enables or disables image normalization.
func WithPipelineOptimizeImages(optimize bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.OptimizeImages = optimize
	}
}

// WithPipelineIgnorePatterns sets URL patterns to skip during crawling.
func WithPipelineIgnorePatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.IgnorePatterns = patterns
	}
}

// WithPipelineFollowPatterns sets URL patterns to follow during crawling.
func WithPipelineFollowPatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.FollowPatterns = patterns
	}
}

// WithPipelineMediaFilter drops media URLs for which keep returns false.
func WithPipelineMediaFilter(keep func(string) bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MediaFilter = keep
	}
}

// WithPipelineProgress receives crawl and asset progress.
func WithPipelineProgress(fn ProgressFunc) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Progress = fn
	}
}

// WithPipelineHistory saves every finished run with saver.
func WithPipelineHistory(saver RunSaver) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.History = saver
	}
}

// WithPipelineLogger sets the logger of every step.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline creates a pipeline with all default steps configured:
// crawl, assets and brand as steps, output and history as finalizers.
//
// Design decision: We provide a default pipeline because:
// 1. The CLI and the HTTP API run the same stages
// 2. Reduces boilerplate in both callers
// 3. Ensures consistent ordering
//
// The client is shared by all steps so cookies and injected headers apply
// to pages, robots.txt and media alike.
func DefaultPipeline(client *http.Client, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	cfg := &DefaultPipelineConfig{
		UserAgent:      config.DefaultUserAgent,
		Timeout:        config.DefaultTimeout,
		MaxBodySize:    config.DefaultMaxBodySize,
		MaxImageSize:   config.DefaultMaxImageSize,
		MaxMedia:       config.DefaultMaxMedia,
		Concurrency:    config.DefaultConcurrency,
		OptimizeImages: true,
		Logger:         slog.Default(),
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p := New(append([]Option{WithLogger(cfg.Logger)}, pipelineOpts...)...)

	crawlOpts := []CrawlStepOption{
		WithCrawlUserAgent(cfg.UserAgent),
		WithCrawlTimeout(cfg.Timeout),
		WithCrawlMaxBodySize(cfg.MaxBodySize),
		WithCrawlLogger(cfg.Logger),
	}
	if len(cfg.IgnorePatterns) > 0 {
		crawlOpts = append(crawlOpts, WithCrawlIgnorePatterns(cfg.IgnorePatterns))
	}
	if len(cfg.FollowPatterns) > 0 {
		crawlOpts = append(crawlOpts, WithCrawlFollowPatterns(cfg.FollowPatterns))
	}
	if cfg.MediaFilter != nil {
		crawlOpts = append(crawlOpts, WithCrawlMediaFilter(cfg.MediaFilter))
	}

	assetOpts := []AssetStepOption{
		WithAssetLogger(cfg.Logger),
		WithAssetOptions(
			asset.WithUserAgent(cfg.UserAgent),
			asset.WithTimeout(cfg.Timeout),
			asset.WithMaxImageSize(cfg.MaxImageSize),
			asset.WithMaxMedia(cfg.MaxMedia),
			asset.WithConcurrency(cfg.Concurrency),
			asset.WithSkipVideos(cfg.SkipVideos),
			asset.WithOptimize(cfg.OptimizeImages),
		),
	}

	if cfg.Progress != nil {
		crawlOpts = append(crawlOpts, WithCrawlProgress(cfg.Progress))
		assetOpts = append(assetOpts, WithAssetProgress(cfg.Progress))
	}

	p.AddSteps(
		NewCrawlStep(client, crawlOpts...),
		NewAssetStep(client, assetOpts...),
		NewBrandStep(cfg.Logger),
	)
	p.AddFinalizer(NewOutputStep(cfg.Logger))
	if cfg.History != nil {
		p.AddFinalizer(NewHistoryStep(cfg.History, cfg.Logger))
	}

	return p
}
