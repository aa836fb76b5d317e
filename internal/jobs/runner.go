package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/brandscan/internal/model"
)

// Runner defaults.
const (
	DefaultWorkers    = 2
	DefaultJobTimeout = 30 * time.Minute
)

// ErrRunnerClosed is returned by Submit after Close.
var ErrRunnerClosed = errors.New("job runner is closed")

// RunFunc performs one job. It reports progress through the tracker and
// returns the extraction it produced, which may be partial on error.
type RunFunc func(ctx context.Context, tracker *Tracker) (*model.Extraction, error)

// Runner executes jobs in the background. At most a fixed number of jobs
// run at once; the others stay queued.
type Runner struct {
	store   Store
	sem     *semaphore.Weighted
	logger  *slog.Logger
	timeout time.Duration

	ctx    context.Context //nolint:containedctx // lifetime of background jobs
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerConfig)

type runnerConfig struct {
	workers int64
	timeout time.Duration
	logger  *slog.Logger
}

// WithWorkers sets how many jobs may run at once.
func WithWorkers(n int) RunnerOption {
	return func(c *runnerConfig) {
		if n > 0 {
			c.workers = int64(n)
		}
	}
}

// WithJobTimeout bounds the run time of one job. Zero disables the bound.
func WithJobTimeout(d time.Duration) RunnerOption {
	return func(c *runnerConfig) {
		c.timeout = d
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(c *runnerConfig) {
		c.logger = logger
	}
}

// NewRunner creates a runner that records job states in store.
func NewRunner(store Store, opts ...RunnerOption) *Runner {
	cfg := runnerConfig{
		workers: DefaultWorkers,
		timeout: DefaultJobTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:   store,
		sem:     semaphore.NewWeighted(cfg.workers),
		logger:  cfg.logger,
		timeout: cfg.timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Store returns the store job states are written to.
func (r *Runner) Store() Store {
	return r.store
}

// Submit records a queued job for target and starts it in the background.
// The returned state carries the new job ID.
func (r *Runner) Submit(ctx context.Context, target string, fn RunFunc) (model.JobState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return model.JobState{}, ErrRunnerClosed
	}

	state := model.NewJobState(uuid.NewString(), target)
	state.Details = append(state.Details, "Job queued")
	if err := r.store.Put(ctx, state); err != nil {
		return model.JobState{}, fmt.Errorf("failed to queue job: %w", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(NewTracker(r.ctx, r.store, state, r.logger), fn)
	}()
	return state, nil
}

func (r *Runner) run(tracker *Tracker, fn RunFunc) {
	id := tracker.State().ID

	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		if ferr := tracker.Fail(fmt.Errorf("job cancelled before start: %w", err), nil); ferr != nil {
			r.logger.Warn("failed to record job state", "job_id", id, "error", ferr)
		}
		return
	}
	defer r.sem.Release(1)

	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := tracker.Start(); err != nil {
		r.logger.Warn("failed to record job start", "job_id", id, "error", err)
	}

	extraction, err := fn(ctx, tracker)

	var recErr error
	switch {
	case err == nil:
		recErr = tracker.Complete(extraction)
	case errors.Is(err, context.DeadlineExceeded) && extraction != nil && extraction.Crawl != nil:
		// A timed-out run keeps what it gathered.
		recErr = tracker.Complete(extraction)
	default:
		r.logger.Warn("job failed", "job_id", id, "error", err)
		recErr = tracker.Fail(err, extraction)
	}
	if recErr != nil {
		r.logger.Warn("failed to record job result", "job_id", id, "error", recErr)
	}
}

// Wait blocks until every submitted job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close cancels running jobs, rejects new ones and waits for the
// background goroutines to record their final state.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}
