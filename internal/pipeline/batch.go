package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/urachaosarena-lab/TerminalOne/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchProcessor handles concurrent processing of multiple save files.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-audit execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each audit.
	// We use a factory to ensure each audit gets a fresh pipeline instance.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent audits.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed audit reports.
	// Access is synchronized via mutex.
	results []*model.Report
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each audit to create a fresh
// pipeline instance. This ensures that pipeline state doesn't leak between
// audits and allows for per-file customization if needed.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		results:         make([]*model.Report, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch audits multiple save files concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each file gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all reports collected, even for files that failed.
// The error return indicates if the batch was cancelled or if all audits failed.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, files []string) ([]*model.Report, error) {
	bp.logger.Info("starting batch processing",
		"total_files", len(files),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.Report, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, file := range files {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("auditing file",
				"file", file,
				"index", i+1,
				"total", len(files),
			)

			// Create report for this file
			report := model.NewReport(file)

			// Create and execute pipeline
			pipeline := bp.pipelineFactory()
			err := pipeline.Execute(ctx, report)

			// Store result regardless of error
			// The report contains error information if the audit failed
			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("audit failed",
					"file", file,
					"error", err,
				)
				// Don't return error to errgroup - we want to continue other audits
				// The error is recorded in the report
				return nil
			}

			bp.logger.Info("audit completed",
				"file", file,
			)

			return nil
		})
	}

	// Wait for all audits to complete
	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch processing complete",
		"total_files", len(files),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback audits multiple files and calls a callback
// for each completed audit. This is useful for streaming results.
//
// The callback receives the report and the index of the file in the
// original slice. The callback is called from the goroutine that completed
// the audit, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	files []string,
	callback func(report *model.Report, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_files", len(files),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, file := range files {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := model.NewReport(file)
			pipeline := bp.pipelineFactory()
			_ = pipeline.Execute(ctx, report) //nolint:errcheck // Error is stored in report

			// Call the callback with the result
			callback(report, i)

			return nil
		})
	}

	return g.Wait()
}
