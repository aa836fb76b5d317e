package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/nao1215/brandscan/internal/config"
	"github.com/nao1215/brandscan/internal/jobs"
	"github.com/nao1215/brandscan/internal/model"
	"github.com/nao1215/brandscan/internal/output"
	"github.com/nao1215/brandscan/internal/pipeline"
)

// Server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
	storeTimeout      = 5 * time.Second
)

// Server is the HTTP front end of the extraction pipeline.
type Server struct {
	runner        *jobs.Runner
	client        *http.Client
	logger        *slog.Logger
	outputRoot    string
	allowedOrigin string
	defaults      Defaults
	pipelineOpts  []pipeline.DefaultPipelineOption
	handler       http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithOutputRoot sets the directory under which every job gets its own
// output directory named after the job ID.
func WithOutputRoot(dir string) Option {
	return func(s *Server) {
		s.outputRoot = dir
	}
}

// WithAllowedOrigin sets the Access-Control-Allow-Origin value.
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) {
		s.allowedOrigin = origin
	}
}

// WithDefaults sets the values used for fields a request leaves out.
func WithDefaults(d Defaults) Option {
	return func(s *Server) {
		s.defaults = d
	}
}

// WithPipelineOptions adds options applied to every job's pipeline, such
// as the user agent or the history database.
func WithPipelineOptions(opts ...pipeline.DefaultPipelineOption) Option {
	return func(s *Server) {
		s.pipelineOpts = append(s.pipelineOpts, opts...)
	}
}

// DefaultsFromConfig derives request defaults from the CLI configuration.
func DefaultsFromConfig(cfg *config.Config) Defaults {
	return Defaults{
		MaxDepth:       cfg.MaxDepth,
		MaxPages:       cfg.MaxPages,
		MaxMedia:       cfg.MaxMedia,
		Delay:          cfg.CrawlDelay,
		SameDomain:     cfg.SameDomain,
		SkipVideos:     cfg.SkipVideos,
		OptimizeImages: cfg.OptimizeImages,
		RobotsStance:   cfg.RobotsStance(),
	}
}

// New creates a server that runs jobs on runner and fetches with client.
func New(runner *jobs.Runner, client *http.Client, opts ...Option) *Server {
	s := &Server{
		runner:        runner,
		client:        client,
		logger:        slog.Default(),
		outputRoot:    filepath.Join(config.XDGCacheDir(), "jobs"),
		allowedOrigin: "*",
		defaults:      DefaultsFromConfig(config.NewConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scrape", s.handleScrape)
	mux.HandleFunc("GET /api/progress/{id}", s.handleProgress)
	mux.HandleFunc("GET /api/download/{id}", s.handleDownload)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	s.handler = s.cors(mux)

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and cancels the running jobs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.runner.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.runner.Close()
	if err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// cors adds the CORS headers and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.allowedOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleScrape starts an extraction.
//
// Method: POST
// Path:   /api/scrape
// Example:
//
//	curl -X POST localhost:8080/api/scrape -d '{"url":"https://example.com","maxPages":20}'
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	req, err := decodeScrapeRequest(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	params, err := req.resolve(s.defaults)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid URL or limits provided", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	state, err := s.runner.Submit(ctx, params.job.StartURL, s.runFunc(params))
	if err != nil {
		if errors.Is(err, jobs.ErrRunnerClosed) {
			writeError(w, http.StatusServiceUnavailable, "Server is shutting down", err)
			return
		}
		s.logger.Error("failed to submit job", "url", params.job.StartURL, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to queue job", err)
		return
	}

	s.logger.Info("job queued", "job_id", state.ID, "url", params.job.StartURL)
	writeJSON(w, http.StatusAccepted, ScrapeResponse{
		JobID:   state.ID,
		Status:  "started",
		Message: "Scraping job initiated successfully",
	})
}

// runFunc builds the job body for params.
func (s *Server) runFunc(params scrapeParams) jobs.RunFunc {
	return func(ctx context.Context, tracker *jobs.Tracker) (*model.Extraction, error) {
		id := tracker.State().ID
		extraction := model.NewExtraction(params.job.StartURL)
		extraction.ID = id
		extraction.Job = params.job
		extraction.OutputDir = filepath.Join(s.outputRoot, id)

		opts := append([]pipeline.DefaultPipelineOption{
			pipeline.WithPipelineLogger(s.logger),
		}, s.pipelineOpts...)
		opts = append(opts,
			pipeline.WithPipelineMaxMedia(params.maxMedia),
			pipeline.WithPipelineSkipVideos(params.skipVideos),
			pipeline.WithPipelineOptimizeImages(params.optimizeImages),
			pipeline.WithPipelineProgress(tracker.OnProgress),
		)

		p := pipeline.DefaultPipeline(s.client, []pipeline.Option{pipeline.WithStepHook(tracker.OnStep)}, opts...)
		err := p.Execute(ctx, extraction)
		return extraction, err
	}
}

// handleProgress reports the state of a job.
//
// Method: GET
// Path:   /api/progress/{id}
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newProgressResponse(state))
}

// handleDownload streams the output directory of a completed job as a zip.
//
// Method: GET
// Path:   /api/download/{id}
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if state.Status != model.JobCompleted || state.OutputDir == "" {
		writeError(w, http.StatusConflict, "Job not ready", ErrJobNotReady)
		return
	}

	domain := state.ID
	if state.Summary != nil && state.Summary.Domain != "" {
		domain = state.Summary.Domain
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="brandscan-%s.zip"`, domain))

	// Headers are gone once the archive starts streaming, so a failure
	// here can only be logged.
	if err := output.Archive(state.OutputDir, w); err != nil {
		s.logger.Error("failed to stream archive", "job_id", state.ID, "error", err)
	}
}

// handleHealth is a liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lookup loads the job named by the {id} path value, writing the error
// response itself when that fails.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (model.JobState, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Job ID required", nil)
		return model.JobState{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	state, ok, err := s.runner.Store().Get(ctx, id)
	if err != nil {
		s.logger.Error("failed to load job", "job_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to load job", err)
		return model.JobState{}, false
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found", jobs.ErrJobNotFound)
		return model.JobState{}, false
	}
	return state, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Debug("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Message = err.Error()
	}
	writeJSON(w, status, resp)
}
