// Package pipeline provides bounded concurrent execution of validation
// jobs. Jobs for different stories run in parallel; per-story mutation
// ordering is the store's responsibility, not the pool's.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is a unit of work keyed by story id.
type Job interface {
	ID() string
}

// Processor runs one job to completion.
type Processor[T Job, R any] func(context.Context, T) (R, error)

// WorkerPool fans jobs out to a bounded set of workers and collects
// results in completion order.
type WorkerPool[T Job, R any] struct {
	workers int
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*poolConfig)

type poolConfig struct {
	workers int
	timeout time.Duration
	logger  *slog.Logger
}

// WithWorkers sets the number of concurrent workers.
func WithWorkers(workers int) Option {
	return func(c *poolConfig) {
		if workers > 0 {
			c.workers = workers
		}
	}
}

// WithTimeout bounds each individual job.
func WithTimeout(timeout time.Duration) Option {
	return func(c *poolConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *poolConfig) {
		c.logger = logger
	}
}

func NewWorkerPool[T Job, R any](options ...Option) *WorkerPool[T, R] {
	config := poolConfig{
		workers: 4,
		timeout: time.Minute,
		logger:  slog.Default().With("component", "worker_pool"),
	}
	for _, opt := range options {
		opt(&config)
	}
	return &WorkerPool[T, R]{
		workers: config.workers,
		timeout: config.timeout,
		logger:  config.logger,
	}
}

// Outcome pairs a job id with its result or failure.
type Outcome[R any] struct {
	JobID  string
	Result R
	Err    error
}

// Process runs all jobs through the processor with bounded concurrency.
// Individual job failures are recorded in their Outcome rather than
// cancelling the batch; only context cancellation stops early.
func (p *WorkerPool[T, R]) Process(ctx context.Context, jobs []T, processor Processor[T, R]) ([]Outcome[R], error) {
	if len(jobs) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var mu sync.Mutex
	outcomes := make([]Outcome[R], 0, len(jobs))

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			jobCtx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()

			start := time.Now()
			result, err := processor(jobCtx, job)
			if err != nil {
				p.logger.Warn("job failed", "job", job.ID(), "error", err, "duration", time.Since(start))
			} else {
				p.logger.Debug("job completed", "job", job.ID(), "duration", time.Since(start))
			}

			mu.Lock()
			outcomes = append(outcomes, Outcome[R]{JobID: job.ID(), Result: result, Err: err})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, fmt.Errorf("batch interrupted: %w", err)
	}
	return outcomes, nil
}
