package model

import (
	"time"
)

// Extraction is the result of running one target through the step pipeline.
// Each step reads what the previous steps left and adds its own part.
//
// Design decision: We use a single envelope rather than passing the crawl
// result and manifest separately because:
//  1. Steps keep a uniform Do(ctx, *Extraction) signature
//  2. Errors and timeouts are recorded in one place for the report writers
//  3. The whole run serializes to one JSON document for the history database
type Extraction struct {
	// ID identifies the run. It is the job ID when the run was started
	// through the HTTP API.
	ID string `json:"id"`

	// Target is the seed URL as given by the user.
	Target string `json:"target"`

	// Job is the crawl configuration actually used.
	Job CrawlJob `json:"job"`

	// OutputDir is where the run was written, empty when nothing was written.
	OutputDir string `json:"output_dir,omitempty"`

	// Crawl is the frontier crawler's output.
	Crawl *CrawlResult `json:"crawl,omitempty"`

	// Manifest is the asset pipeline's output.
	Manifest *AssetManifest `json:"manifest,omitempty"`

	// Brand is the brand brief derived from the page text.
	Brand *BrandBrief `json:"brand,omitempty"`

	// PerformedSteps lists the names of the steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut is true when the run was cancelled before all steps finished.
	TimedOut bool `json:"timed_out"`

	// Error is the last step error.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// NewExtraction creates an extraction for the given target.
func NewExtraction(target string) *Extraction {
	return &Extraction{
		Target:         target,
		PerformedSteps: make([]string, 0),
		StartedAt:      time.Now(),
	}
}

// Domain returns the crawled host, or the target when no crawl ran.
func (e *Extraction) Domain() string {
	if e.Crawl != nil && e.Crawl.Domain != "" {
		return e.Crawl.Domain
	}
	return e.Target
}

// Summary is the flat counter view of an extraction used by the console
// report, the history database and job progress.
type Summary struct {
	Target            string        `json:"target"`
	Domain            string        `json:"domain"`
	PagesVisited      int           `json:"pages_visited"`
	PagesFailed       int           `json:"pages_failed"`
	TextChunks        int           `json:"text_chunks"`
	MediaFound        int           `json:"media_found"`
	ImagesDownloaded  int           `json:"images_downloaded"`
	ImagesOptimized   int           `json:"images_optimized"`
	LogosDetected     int           `json:"logos_detected"`
	DuplicatesSkipped int           `json:"duplicates_skipped"`
	FailedDownloads   int           `json:"failed_downloads"`
	VideosProcessed   int           `json:"videos_processed"`
	BytesStored       int64         `json:"bytes_stored"`
	Duration          time.Duration `json:"duration"`
	TimedOut          bool          `json:"timed_out"`
	Error             string        `json:"error,omitempty"`
}

// Summarize builds the counter view of the extraction.
func (e *Extraction) Summarize() Summary {
	s := Summary{
		Target:   e.Target,
		Domain:   e.Domain(),
		TimedOut: e.TimedOut,
		Error:    e.ErrorMessage,
	}
	if !e.FinishedAt.IsZero() {
		s.Duration = e.FinishedAt.Sub(e.StartedAt)
	}
	if e.Crawl != nil {
		s.PagesVisited = e.Crawl.PagesVisited
		s.PagesFailed = e.Crawl.PagesFailed
		s.TextChunks = len(e.Crawl.Text)
		s.MediaFound = len(e.Crawl.MediaURLs)
	}
	if e.Manifest != nil {
		st := e.Manifest.Stats
		s.ImagesDownloaded = st.ImagesDownloaded
		s.ImagesOptimized = st.ImagesOptimized
		s.LogosDetected = st.LogosDetected
		s.DuplicatesSkipped = st.DuplicatesSkipped
		s.FailedDownloads = st.FailedDownloads
		s.VideosProcessed = st.VideosProcessed
		s.BytesStored = e.Manifest.TotalBytes()
	}
	return s
}
