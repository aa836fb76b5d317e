package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/brandscan/internal/model"
	"github.com/nao1215/brandscan/internal/pipeline"
)

// maxDetails bounds the detail lines kept per job; older lines are dropped.
const maxDetails = 50

// persistTimeout bounds one store write issued from a progress callback.
const persistTimeout = 5 * time.Second

// band is the share of the overall percentage a step owns.
type band struct {
	from, to int
}

// stepBands splits 0-100 across the default pipeline. Crawling and
// downloading dominate the run time, so they own most of the range.
var stepBands = map[string]band{
	pipeline.StepCrawl:   {0, 50},
	pipeline.StepAssets:  {50, 90},
	pipeline.StepBrand:   {90, 95},
	pipeline.StepOutput:  {95, 98},
	pipeline.StepHistory: {98, 100},
}

// Tracker maps the events of one pipeline run onto a JobState and writes
// every change to a Store. It is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	store  Store
	state  model.JobState
	logger *slog.Logger
	ctx    context.Context //nolint:containedctx // progress callbacks carry no context
}

// NewTracker creates a tracker for state. Store writes made from callbacks
// use ctx without its cancellation, so a timed-out job still records its
// final state.
func NewTracker(ctx context.Context, store Store, state model.JobState, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:  store,
		state:  state,
		logger: logger,
		ctx:    context.WithoutCancel(ctx),
	}
}

// State returns a copy of the current state.
func (t *Tracker) State() model.JobState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return clone(t.state)
}

// Start marks the job as running.
func (t *Tracker) Start() error {
	return t.update(func(s *model.JobState) {
		s.Status = model.JobRunning
		s.Percentage = 0
		addDetail(s, "Starting extraction of "+s.URL)
	})
}

// OnStep is a pipeline step hook.
func (t *Tracker) OnStep(ev pipeline.StepEvent) {
	b, ok := stepBands[ev.Step]
	if !ok {
		b = band{0, 100}
	}

	err := t.update(func(s *model.JobState) {
		switch ev.Phase {
		case pipeline.PhaseStarted:
			s.CurrentStep = ev.Step
			raise(s, b.from)
			addDetail(s, fmt.Sprintf("Step %d/%d: %s", ev.Index+1, ev.Total, ev.Step))
		case pipeline.PhaseFinished:
			raise(s, b.to)
		case pipeline.PhaseFailed:
			addDetail(s, fmt.Sprintf("Step %s failed: %v", ev.Step, ev.Err))
		}
	})
	if err != nil {
		t.logger.Warn("failed to record step event", "job_id", t.id(), "step", ev.Step, "error", err)
	}
}

// OnProgress is a pipeline progress callback. The percentage advances
// within the band of the reporting step and never moves backwards.
func (t *Tracker) OnProgress(p pipeline.Progress) {
	b, ok := stepBands[p.Step]
	if !ok || p.Total <= 0 {
		return
	}
	done := min(p.Done, p.Total)
	pct := b.from + (b.to-b.from)*done/p.Total

	err := t.update(func(s *model.JobState) {
		raise(s, pct)
		switch p.Step {
		case pipeline.StepCrawl:
			addDetail(s, fmt.Sprintf("Crawled %d/%d pages: %s", p.Done, p.Total, p.Message))
		case pipeline.StepAssets:
			addDetail(s, fmt.Sprintf("Processed %d/%d media files", p.Done, p.Total))
		}
	})
	if err != nil {
		t.logger.Warn("failed to record progress", "job_id", t.id(), "error", err)
	}
}

// Complete marks the job as completed and attaches the run summary.
func (t *Tracker) Complete(e *model.Extraction) error {
	return t.update(func(s *model.JobState) {
		s.Status = model.JobCompleted
		s.Percentage = 100
		s.CurrentStep = ""
		attach(s, e)
		if e != nil && e.TimedOut {
			addDetail(s, "Extraction timed out, partial results kept")
		} else {
			addDetail(s, "Extraction completed")
		}
	})
}

// Fail marks the job as failed. e may be nil when nothing ran.
func (t *Tracker) Fail(cause error, e *model.Extraction) error {
	return t.update(func(s *model.JobState) {
		s.Status = model.JobFailed
		s.Error = cause.Error()
		attach(s, e)
		addDetail(s, "Extraction failed: "+cause.Error())
	})
}

func (t *Tracker) update(fn func(*model.JobState)) error {
	t.mu.Lock()
	fn(&t.state)
	t.state.UpdatedAt = time.Now().UTC()
	snapshot := clone(t.state)
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(t.ctx, persistTimeout)
	defer cancel()
	if err := t.store.Put(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save job %s: %w", snapshot.ID, err)
	}
	return nil
}

func (t *Tracker) id() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.ID
}

func raise(s *model.JobState, pct int) {
	if pct > s.Percentage {
		s.Percentage = min(pct, 100)
	}
}

func addDetail(s *model.JobState, line string) {
	s.Details = append(s.Details, line)
	if over := len(s.Details) - maxDetails; over > 0 {
		s.Details = append(s.Details[:0:0], s.Details[over:]...)
	}
}

func attach(s *model.JobState, e *model.Extraction) {
	if e == nil {
		return
	}
	summary := e.Summarize()
	s.Summary = &summary
	s.OutputDir = e.OutputDir
}
