package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/brandscan/internal/asset"
	"github.com/nao1215/brandscan/internal/brand"
	"github.com/nao1215/brandscan/internal/crawler"
	"github.com/nao1215/brandscan/internal/model"
	"github.com/nao1215/brandscan/internal/output"
	"github.com/nao1215/brandscan/internal/report"
)

// Step names.
const (
	StepCrawl   = "crawl"
	StepAssets  = "assets"
	StepBrand   = "brand"
	StepOutput  = "output"
	StepHistory = "history"
)

// ErrNoCrawl is returned by steps that need a crawl result when none exists.
var ErrNoCrawl = errors.New("no crawl result to process")

// CrawlStep runs the frontier crawler for the extraction's job.
//
// Design decision: Crawling is separate from asset processing because:
// 1. It has different configuration (depth, page budget, delay)
// 2. It produces different data (pages and references vs stored bytes)
// 3. Its progress is reported in pages, not media
type CrawlStep struct {
	// client is shared with the asset step so cookies set by the site
	// apply to media downloads too.
	client *http.Client

	// userAgent is sent with page and robots.txt requests.
	userAgent string

	// timeout bounds one page request.
	timeout time.Duration

	// maxBodySize limits the size of HTML bodies to read.
	maxBodySize int64

	// ignorePatterns are URL path patterns to skip during crawling.
	ignorePatterns []string

	// followPatterns are URL path patterns to follow during crawling.
	followPatterns []string

	// mediaFilter drops media references before they are recorded.
	mediaFilter func(string) bool

	progress ProgressFunc
	logger   *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlUserAgent sets the User-Agent header for page requests.
func WithCrawlUserAgent(userAgent string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.userAgent = userAgent
	}
}

// WithCrawlTimeout sets the per-page request timeout.
func WithCrawlTimeout(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.timeout = d
	}
}

// WithCrawlMaxBodySize sets the maximum HTML body size in bytes.
func WithCrawlMaxBodySize(maxBodySize int64) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxBodySize = maxBodySize
	}
}

// WithCrawlIgnorePatterns sets URL path patterns to skip during crawling.
func WithCrawlIgnorePatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.ignorePatterns = patterns
	}
}

// WithCrawlFollowPatterns sets URL path patterns to follow during crawling.
func WithCrawlFollowPatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.followPatterns = patterns
	}
}

// WithCrawlMediaFilter drops media URLs for which keep returns false.
func WithCrawlMediaFilter(keep func(string) bool) CrawlStepOption {
	return func(s *CrawlStep) {
		s.mediaFilter = keep
	}
}

// WithCrawlProgress reports every page attempt.
func WithCrawlProgress(fn ProgressFunc) CrawlStepOption {
	return func(s *CrawlStep) {
		s.progress = fn
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new crawling step.
func NewCrawlStep(client *http.Client, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		client:    client,
		userAgent: crawler.DefaultUserAgent,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return StepCrawl
}

// Do crawls extraction.Job and stores the result in extraction.Crawl.
// A partial result is stored even when the crawl fails.
func (s *CrawlStep) Do(ctx context.Context, extraction *model.Extraction) error {
	spiderOpts := []crawler.SpiderOption{
		crawler.WithSpiderUserAgent(s.userAgent),
		crawler.WithLogger(s.logger),
	}
	if s.timeout > 0 {
		spiderOpts = append(spiderOpts, crawler.WithSpiderTimeout(s.timeout))
	}
	if s.maxBodySize > 0 {
		spiderOpts = append(spiderOpts, crawler.WithSpiderMaxBodySize(s.maxBodySize))
	}
	if len(s.ignorePatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithIgnorePatterns(s.ignorePatterns))
	}
	if len(s.followPatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithFollowPatterns(s.followPatterns))
	}
	if s.mediaFilter != nil {
		spiderOpts = append(spiderOpts, crawler.WithParserOptions(crawler.WithMediaFilter(s.mediaFilter)))
	}
	if s.progress != nil {
		spiderOpts = append(spiderOpts, crawler.WithProgress(func(p crawler.CrawlProgress) {
			s.progress(Progress{
				Step:    StepCrawl,
				Done:    p.PagesVisited,
				Total:   p.MaxPages,
				Message: p.URL,
			})
		}))
	}

	job := extraction.Job
	if job.StartURL == "" {
		job.StartURL = extraction.Target
	}

	result, err := crawler.NewSpider(s.client, spiderOpts...).Crawl(ctx, job)
	if result != nil {
		extraction.Crawl = result
	}
	if err != nil {
		return fmt.Errorf("crawl of %s failed: %w", job.StartURL, err)
	}

	s.logger.Info("crawl completed",
		"target", extraction.Target,
		"pages_visited", result.PagesVisited,
		"pages_failed", result.PagesFailed,
		"media_found", len(result.MediaURLs),
	)

	return nil
}

// SinkFactory chooses where the assets of an extraction are stored.
type SinkFactory func(extraction *model.Extraction) asset.Sink

// DefaultSinkFactory stores into the run's output layout, or in memory
// when the extraction has no output directory.
func DefaultSinkFactory(extraction *model.Extraction) asset.Sink {
	if extraction.OutputDir == "" {
		return asset.NewMemorySink()
	}
	return output.NewLayout(extraction.OutputDir).Sink()
}

// AssetStep downloads, deduplicates, classifies and stores the media the
// crawl found.
type AssetStep struct {
	client  *http.Client
	sinks   SinkFactory
	options []asset.Option

	progress ProgressFunc
	logger   *slog.Logger
}

// AssetStepOption configures an AssetStep.
type AssetStepOption func(*AssetStep)

// WithAssetOptions passes options to the asset pipeline.
func WithAssetOptions(opts ...asset.Option) AssetStepOption {
	return func(s *AssetStep) {
		s.options = append(s.options, opts...)
	}
}

// WithSinkFactory replaces the sink selection.
func WithSinkFactory(f SinkFactory) AssetStepOption {
	return func(s *AssetStep) {
		s.sinks = f
	}
}

// WithAssetProgress reports every committed media URL.
func WithAssetProgress(fn ProgressFunc) AssetStepOption {
	return func(s *AssetStep) {
		s.progress = fn
	}
}

// WithAssetLogger sets a custom logger for the asset step.
func WithAssetLogger(logger *slog.Logger) AssetStepOption {
	return func(s *AssetStep) {
		s.logger = logger
	}
}

// NewAssetStep creates the asset processing step.
func NewAssetStep(client *http.Client, opts ...AssetStepOption) *AssetStep {
	s := &AssetStep{
		client: client,
		sinks:  DefaultSinkFactory,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *AssetStep) Name() string {
	return StepAssets
}

// Do processes extraction.Crawl into extraction.Manifest. The manifest
// built so far is kept when the context is cancelled.
func (s *AssetStep) Do(ctx context.Context, extraction *model.Extraction) error {
	if extraction.Crawl == nil {
		return ErrNoCrawl
	}

	opts := append([]asset.Option{asset.WithLogger(s.logger)}, s.options...)
	if s.progress != nil {
		opts = append(opts, asset.WithProgress(func(p asset.Progress) {
			s.progress(Progress{
				Step:    StepAssets,
				Done:    p.Done,
				Total:   p.Total,
				Message: p.Outcome.URL,
			})
		}))
	}

	manifest, err := asset.NewPipeline(s.client, s.sinks(extraction), opts...).Process(ctx, extraction.Crawl)
	if manifest != nil {
		extraction.Manifest = manifest
	}
	if err != nil {
		return fmt.Errorf("asset processing interrupted: %w", err)
	}

	st := manifest.Stats
	s.logger.Info("assets processed",
		"target", extraction.Target,
		"stored", st.ImagesDownloaded,
		"logos", st.LogosDetected,
		"duplicates", st.DuplicatesSkipped,
		"failed", st.FailedDownloads,
	)
	return nil
}

// BrandStep derives the brand brief from the crawled text and styles.
type BrandStep struct {
	logger *slog.Logger
}

// NewBrandStep creates the brand analysis step.
func NewBrandStep(logger *slog.Logger) *BrandStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrandStep{logger: logger}
}

// Name returns the step name.
func (s *BrandStep) Name() string {
	return StepBrand
}

// Do sets extraction.Brand. It never fails; a site without usable text
// gets an empty brief.
func (s *BrandStep) Do(_ context.Context, extraction *model.Extraction) error {
	extraction.Brand = brand.AnalyzeCrawl(extraction.Crawl)
	s.logger.Debug("brand analyzed",
		"target", extraction.Target,
		"name", extraction.Brand.Name,
		"colors", len(extraction.Brand.Colors),
	)
	return nil
}

// OutputStep writes the run directory: raw text, pages, videos, brand
// brief, manifest and the plain-text extraction report. Assets are
// already there because the asset step stores through the layout's sink.
type OutputStep struct {
	logger *slog.Logger
}

// NewOutputStep creates the output writing step.
func NewOutputStep(logger *slog.Logger) *OutputStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutputStep{logger: logger}
}

// Name returns the step name.
func (s *OutputStep) Name() string {
	return StepOutput
}

// Do writes whatever the previous steps produced. Missing parts are
// skipped, so a failed or timed-out run still leaves its partial results.
func (s *OutputStep) Do(_ context.Context, extraction *model.Extraction) error {
	if extraction.OutputDir == "" {
		return nil
	}

	layout := output.NewLayout(extraction.OutputDir)
	if err := layout.Prepare(); err != nil {
		return err
	}

	if extraction.Crawl != nil {
		if err := layout.WriteRawText(extraction.Crawl.Text); err != nil {
			return err
		}
		if _, err := layout.WritePages(extraction.Crawl); err != nil {
			return err
		}
	}
	if extraction.Manifest != nil {
		if err := layout.WriteVideos(extraction.Manifest.Videos); err != nil {
			return err
		}
		if err := layout.WriteManifest(extraction.Manifest); err != nil {
			return err
		}
	}
	if extraction.Brand != nil {
		if err := layout.WriteBrief(extraction.Brand, extraction.Domain()); err != nil {
			return err
		}
	}

	// The report file is plain text regardless of the console format.
	err := layout.WriteFile(output.ReportFile, func(w io.Writer) error {
		_, err := report.NewSimpleWriter(w, report.WithVerbose(true)).Write(extraction)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("output written", "target", extraction.Target, "dir", extraction.OutputDir)
	return nil
}

// RunSaver persists finished extractions.
type RunSaver interface {
	SaveRun(ctx context.Context, extraction *model.Extraction) (int64, error)
}

// HistoryStep stores the extraction in the history database.
type HistoryStep struct {
	saver  RunSaver
	logger *slog.Logger
}

// NewHistoryStep creates the history step.
func NewHistoryStep(saver RunSaver, logger *slog.Logger) *HistoryStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryStep{saver: saver, logger: logger}
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return StepHistory
}

// Do saves the run. Runs whose crawl never started are not saved.
func (s *HistoryStep) Do(ctx context.Context, extraction *model.Extraction) error {
	if extraction.Crawl == nil {
		return nil
	}
	id, err := s.saver.SaveRun(ctx, extraction)
	if err != nil {
		return fmt.Errorf("failed to save run history: %w", err)
	}
	s.logger.Debug("run saved", "target", extraction.Target, "run", id)
	return nil
}
