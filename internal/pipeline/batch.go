package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/brandscan/internal/model"
)

// DefaultBatchConcurrency is the number of targets processed at once when
// WithConcurrency is not given.
const DefaultBatchConcurrency = 2

// BatchProcessor handles concurrent processing of several targets.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-target execution
// 2. Each target owns its crawl state, so targets never share a pipeline
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates the pipeline of one extraction.
	// Targets can differ in cookies, headers and patterns, so every
	// extraction gets a fresh pipeline built for it.
	pipelineFactory func(*model.Extraction) *Pipeline

	// concurrency is the maximum number of concurrent targets.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent targets.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(*model.Extraction) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs every extraction through its own pipeline, at most
// concurrency at a time.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it is simpler and errgroup handles the concurrency correctly.
//
// A failed target never stops the others; its error is recorded in its
// extraction. The returned error is the context's when the batch was
// cancelled. Extractions that never started are marked TimedOut.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, extractions []*model.Extraction) error {
	return bp.ProcessBatchWithCallback(ctx, extractions, nil)
}

// ProcessBatchWithCallback is ProcessBatch with a callback invoked after
// each extraction finishes. The callback runs on the goroutine that
// processed the extraction, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	extractions []*model.Extraction,
	callback func(extraction *model.Extraction, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_targets", len(extractions),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g := new(errgroup.Group)
	g.SetLimit(bp.concurrency)

	for i, extraction := range extractions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				extraction.TimedOut = true
				extraction.Error = err
				extraction.ErrorMessage = err.Error()
				return nil
			}

			bp.logger.Info("extracting target",
				"target", extraction.Target,
				"index", i+1,
				"total", len(extractions),
			)

			if err := bp.pipelineFactory(extraction).Execute(ctx, extraction); err != nil {
				bp.logger.Warn("extraction failed",
					"target", extraction.Target,
					"error", err,
				)
			}

			if callback != nil {
				callback(extraction, i)
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines record errors in their extraction

	bp.logger.Info("batch processing complete",
		"total_targets", len(extractions),
		"elapsed", time.Since(startTime),
	)

	return ctx.Err()
}
