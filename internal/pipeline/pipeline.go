package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/brandscan/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the extraction
// built by the previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and progress reporting
// 3. Finalizers and regular steps share one contract
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; per-item failures
	// are counted in the extraction and return nil.
	Do(ctx context.Context, extraction *model.Extraction) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Phase tells where a step is in its lifecycle.
type Phase string

// Step phases reported to the step hook.
const (
	PhaseStarted  Phase = "started"
	PhaseFinished Phase = "finished"
	PhaseFailed   Phase = "failed"
)

// StepEvent is reported to the step hook around every step.
type StepEvent struct {
	// Step is the step name.
	Step string

	// Index is the zero-based position of the step, finalizers included.
	Index int

	// Total is the number of steps, finalizers included.
	Total int

	Phase Phase

	// Err is set for PhaseFailed.
	Err error
}

// Progress is fine-grained progress inside one step, e.g. pages crawled
// or media committed.
type Progress struct {
	Step    string
	Done    int
	Total   int
	Message string
}

// ProgressFunc receives step progress. It is called on the step's own
// goroutine and must return quickly.
type ProgressFunc func(Progress)

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order, then runs its
// finalizers.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// finalizers run after the steps even when a step failed or the
	// context was cancelled, so partial results still reach the disk.
	finalizers []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool

	// hook observes step boundaries.
	hook func(StepEvent)
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails.
//
// Design decision: The default is to stop on error because a failed crawl
// leaves nothing for the later steps to work on. Context cancellation
// always stops the steps regardless of this option.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// WithStepHook registers a callback invoked when a step starts, finishes
// or fails.
func WithStepHook(hook func(StepEvent)) Option {
	return func(p *Pipeline) {
		p.hook = hook
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:      make([]Step, 0),
		finalizers: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalizer appends a step that runs after all regular steps, even
// when one of them failed or the context was cancelled. Finalizers run
// with a context that is detached from cancellation.
func (p *Pipeline) AddFinalizer(step Step) {
	p.finalizers = append(p.finalizers, step)
}

// Execute runs all pipeline steps in sequence, then the finalizers.
//
// Design decision: We check ctx before each step rather than during,
// because steps handle their own cancellation and return partial results.
// A cancelled run is marked TimedOut and still finalized, so whatever was
// collected is written out.
//
// Returns the first step error when continueOnError is false, or the
// context error when the run was cancelled.
func (p *Pipeline) Execute(ctx context.Context, extraction *model.Extraction) error {
	total := len(p.steps) + len(p.finalizers)
	runErr := p.runSteps(ctx, extraction, total)

	if extraction.FinishedAt.IsZero() {
		extraction.FinishedAt = time.Now()
	}

	// Finalizers must survive the cancellation that may have ended the
	// steps, otherwise a timed-out run would write nothing.
	finalCtx := context.WithoutCancel(ctx)
	for i, step := range p.finalizers {
		if err := p.runStep(finalCtx, extraction, step, len(p.steps)+i, total); err != nil && runErr == nil {
			runErr = err
		}
	}

	return runErr
}

func (p *Pipeline) runSteps(ctx context.Context, extraction *model.Extraction, total int) error {
	var firstErr error
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			p.markCancelled(extraction, err)
			return err
		}

		err := p.runStep(ctx, extraction, step, i, total)
		if err == nil {
			continue
		}

		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.markCancelled(extraction, err)
			return err
		}
		if firstErr == nil {
			firstErr = err
		}
		if !p.continueOnError {
			return err
		}
	}
	return firstErr
}

func (p *Pipeline) runStep(ctx context.Context, extraction *model.Extraction, step Step, index, total int) error {
	p.emit(StepEvent{Step: step.Name(), Index: index, Total: total, Phase: PhaseStarted})
	p.logger.Info("executing step",
		"step", step.Name(),
		"target", extraction.Target,
	)

	if err := step.Do(ctx, extraction); err != nil {
		p.logger.Error("step failed",
			"step", step.Name(),
			"target", extraction.Target,
			"error", err,
		)
		extraction.Error = err
		extraction.ErrorMessage = err.Error()
		// The step ran and may have recorded partial results.
		extraction.PerformedSteps = append(extraction.PerformedSteps, step.Name())
		p.emit(StepEvent{Step: step.Name(), Index: index, Total: total, Phase: PhaseFailed, Err: err})
		return err
	}

	p.logger.Debug("step completed",
		"step", step.Name(),
		"target", extraction.Target,
	)
	extraction.PerformedSteps = append(extraction.PerformedSteps, step.Name())
	p.emit(StepEvent{Step: step.Name(), Index: index, Total: total, Phase: PhaseFinished})
	return nil
}

func (p *Pipeline) markCancelled(extraction *model.Extraction, err error) {
	extraction.TimedOut = true
	extraction.Error = err
	extraction.ErrorMessage = err.Error()
}

func (p *Pipeline) emit(ev StepEvent) {
	if p.hook != nil {
		p.hook(ev)
	}
}

// StepCount returns the number of steps in the pipeline, finalizers included.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.finalizers)
}

// StepNames returns the names of all steps in execution order, finalizers last.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finalizers {
		names = append(names, step.Name())
	}
	return names
}
