package api

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/nao1215/brandscan/internal/model"
	"github.com/nao1215/brandscan/internal/policy"
)

// Server-side bounds for client supplied limits.
const (
	MaxDepthLimit = 10
	MaxPagesLimit = 1000
	MaxMediaLimit = 2000

	maxRequestBody = 1 << 20
)

// ScrapeRequest is the body of POST /api/scrape. Omitted fields take the
// server defaults.
type ScrapeRequest struct {
	URL            string `json:"url"`
	MaxDepth       *int   `json:"maxDepth,omitempty"`
	MaxPages       *int   `json:"maxPages,omitempty"`
	MaxMedia       *int   `json:"maxMedia,omitempty"`
	SkipVideos     *bool  `json:"skipVideos,omitempty"`
	OptimizeImages *bool  `json:"optimizeImages,omitempty"`
	RespectRobots  *bool  `json:"respectRobots,omitempty"`
}

// Defaults are applied to fields a ScrapeRequest leaves out.
type Defaults struct {
	MaxDepth       int
	MaxPages       int
	MaxMedia       int
	Delay          time.Duration
	SameDomain     bool
	SkipVideos     bool
	OptimizeImages bool
	RobotsStance   model.RobotsStance
}

// scrapeParams is a validated request.
type scrapeParams struct {
	job            model.CrawlJob
	maxMedia       int
	skipVideos     bool
	optimizeImages bool
}

func decodeScrapeRequest(r io.Reader) (ScrapeRequest, error) {
	var req ScrapeRequest
	dec := json.NewDecoder(io.LimitReader(r, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return ScrapeRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return req, nil
}

// resolve merges req with d and validates the result.
func (req ScrapeRequest) resolve(d Defaults) (scrapeParams, error) {
	seed, err := policy.NormalizeSeed(req.URL)
	if err != nil {
		return scrapeParams{}, err
	}

	p := scrapeParams{
		job: model.CrawlJob{
			StartURL:     seed,
			MaxDepth:     pick(req.MaxDepth, d.MaxDepth),
			MaxPages:     pick(req.MaxPages, d.MaxPages),
			Delay:        d.Delay,
			SameDomain:   d.SameDomain,
			RobotsStance: d.RobotsStance,
		},
		maxMedia:       pick(req.MaxMedia, d.MaxMedia),
		skipVideos:     pick(req.SkipVideos, d.SkipVideos),
		optimizeImages: pick(req.OptimizeImages, d.OptimizeImages),
	}
	if req.RespectRobots != nil {
		p.job.RobotsStance = model.RobotsWarn
		if *req.RespectRobots {
			p.job.RobotsStance = model.RobotsRespect
		}
	}

	if err := p.job.Validate(); err != nil {
		return scrapeParams{}, err
	}
	switch {
	case p.job.MaxDepth > MaxDepthLimit:
		return scrapeParams{}, fmt.Errorf("%w: maxDepth %d > %d", ErrLimitExceeded, p.job.MaxDepth, MaxDepthLimit)
	case p.job.MaxPages > MaxPagesLimit:
		return scrapeParams{}, fmt.Errorf("%w: maxPages %d > %d", ErrLimitExceeded, p.job.MaxPages, MaxPagesLimit)
	case p.maxMedia > MaxMediaLimit:
		return scrapeParams{}, fmt.Errorf("%w: maxMedia %d > %d", ErrLimitExceeded, p.maxMedia, MaxMediaLimit)
	case p.maxMedia < 0:
		return scrapeParams{}, fmt.Errorf("%w: maxMedia must be non-negative", ErrInvalidRequest)
	}
	return p, nil
}

func pick[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

// ScrapeResponse is returned by POST /api/scrape.
type ScrapeResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ProgressResponse is returned by GET /api/progress/{id}.
//
// Status is "processing" until the job reaches completed or failed. State
// carries the exact lifecycle state.
type ProgressResponse struct {
	JobID       string    `json:"jobId"`
	URL         string    `json:"url"`
	Status      string    `json:"status"`
	State       string    `json:"state"`
	Percentage  int       `json:"percentage"`
	CurrentStep string    `json:"currentStep,omitempty"`
	Details     []string  `json:"details"`
	Error       string    `json:"error,omitempty"`
	Results     *Results  `json:"results,omitempty"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Results summarizes a finished job.
type Results struct {
	Domain            string `json:"domain"`
	PagesCrawled      int    `json:"pages_crawled"`
	PagesFailed       int    `json:"pages_failed"`
	ImagesDownloaded  int    `json:"images_downloaded"`
	ImagesOptimized   int    `json:"images_optimized"`
	LogosDetected     int    `json:"logos_detected"`
	DuplicatesSkipped int    `json:"duplicates_skipped"`
	FailedDownloads   int    `json:"failed_downloads"`
	VideosFound       int    `json:"videos_found"`
	BytesStored       int64  `json:"bytes_stored"`
	TimedOut          bool   `json:"timed_out"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func newProgressResponse(state model.JobState) ProgressResponse {
	resp := ProgressResponse{
		JobID:       state.ID,
		URL:         state.URL,
		Status:      "processing",
		State:       string(state.Status),
		Percentage:  state.Percentage,
		CurrentStep: state.CurrentStep,
		Details:     state.Details,
		Error:       state.Error,
		UpdatedAt:   state.UpdatedAt,
	}
	if resp.Details == nil {
		resp.Details = []string{}
	}
	if state.Status.IsTerminal() {
		resp.Status = string(state.Status)
	}
	if s := state.Summary; s != nil {
		resp.Results = &Results{
			Domain:            s.Domain,
			PagesCrawled:      s.PagesVisited,
			PagesFailed:       s.PagesFailed,
			ImagesDownloaded:  s.ImagesDownloaded,
			ImagesOptimized:   s.ImagesOptimized,
			LogosDetected:     s.LogosDetected,
			DuplicatesSkipped: s.DuplicatesSkipped,
			FailedDownloads:   s.FailedDownloads,
			VideosFound:       s.VideosProcessed,
			BytesStored:       s.BytesStored,
			TimedOut:          s.TimedOut,
		}
	}
	if state.Status == model.JobCompleted && state.OutputDir != "" {
		resp.DownloadURL = "/api/download/" + state.ID
	}
	return resp
}
