// Package worker runs the asynchronous rescore pool. Each job reloads the
// target record, requeries its neighborhood and writes a fresh GTC, so
// scores converge after nearby ingest without blocking the ingest path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/strata/internal/adapters/mq/queue"
	"github.com/okian/strata/internal/adapters/repository"
	"github.com/okian/strata/internal/domain/model"
	"github.com/okian/strata/pkg/logger"
	"github.com/okian/strata/pkg/metrics"
)

// Pool defaults.
const (
	defaultWorkerMultiplier = 2
	jobTimeout              = 5 * time.Second
)

// RecordSource is the slice of the store the rescore path needs.
type RecordSource interface {
	Get(ctx context.Context, id string) (model.MeasurementRecord, error)
	QueryNear(ctx context.Context, loc model.Location, radius float64, typeFilter []model.MeasurementType) ([]model.MeasurementRecord, error)
	UpdateScore(ctx context.Context, id string, score float64) error
}

// Scorer recomputes a record's GTC against its current neighbor set.
type Scorer interface {
	Score(ctx context.Context, rec *model.MeasurementRecord, neighbors []model.MeasurementRecord) (float64, error)
}

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithWorkerCount sets the number of rescore goroutines.
func WithWorkerCount(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workerCount = n
		}
	}
}

// WithNeighborRadius sets the radius used when reloading a job's
// neighborhood.
func WithNeighborRadius(r float64) Option {
	return func(p *Pool) {
		if r > 0 {
			p.radius = r
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pool consumes rescore jobs with a fixed set of workers.
type Pool struct {
	queue       queue.Queue
	source      RecordSource
	scorer      Scorer
	workerCount int
	radius      float64

	group  *errgroup.Group
	cancel context.CancelFunc

	logger logger.Logger
}

// NewPool constructs a rescore pool.
func NewPool(q queue.Queue, source RecordSource, scorer Scorer, opts ...Option) *Pool {
	p := &Pool{
		queue:       q,
		source:      source,
		scorer:      scorer,
		workerCount: runtime.NumCPU() * defaultWorkerMultiplier,
		radius:      1.0,
		logger:      logger.Get().Named("rescore"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. They run until ctx is canceled or the queue
// closes.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.group, runCtx = errgroup.WithContext(runCtx)

	metrics.UpdateWorkerCount(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.group.Go(func() error {
			p.run(runCtx)
			return nil
		})
	}
}

// Stop closes the queue and waits for the workers to drain.
func (p *Pool) Stop() {
	_ = p.queue.Close()
	if p.group != nil {
		_ = p.group.Wait()
	}
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pool) run(ctx context.Context) {
	jobs := p.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := p.process(ctx, job); err != nil {
				metrics.RecordRescoreError()
				p.logger.Error(ctx, "rescore failed",
					logger.String("record_id", job.RecordID),
					logger.String("cause", job.Cause),
					logger.Error(err),
				)
			}
		}
	}
}

// process recomputes one record's GTC. Missing records are not an error:
// the job may simply have outlived its target.
func (p *Pool) process(ctx context.Context, job queue.Job) error {
	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordRescoreLatency(float64(time.Since(start).Milliseconds()))
	}()

	rec, err := p.source.Get(jobCtx, job.RecordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load record: %w", err)
	}

	neighbors, err := p.source.QueryNear(jobCtx, rec.Location, p.radius, nil)
	if err != nil {
		return fmt.Errorf("load neighbors: %w", err)
	}

	score, err := p.scorer.Score(jobCtx, &rec, neighbors)
	if err != nil {
		// Scoring inconsistencies leave the record unscored; nothing is
		// guessed in its place.
		return fmt.Errorf("score: %w", err)
	}

	if err := p.source.UpdateScore(jobCtx, rec.ID, score); err != nil {
		return fmt.Errorf("write score: %w", err)
	}
	metrics.RecordRescoreProcessed()
	return nil
}
