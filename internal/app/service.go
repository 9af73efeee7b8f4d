// Package service wires the reconciliation engine together: validation,
// conflict detection, confidence scoring, risk assessment and the rescore
// pipeline, all behind one explicitly constructed Engine instance.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/strata/internal/adapters/mq/queue"
	"github.com/okian/strata/internal/adapters/mq/worker"
	"github.com/okian/strata/internal/adapters/repository"
	"github.com/okian/strata/internal/domain/conflict"
	"github.com/okian/strata/internal/domain/dedupe"
	"github.com/okian/strata/internal/domain/geo"
	"github.com/okian/strata/internal/domain/model"
	"github.com/okian/strata/internal/domain/risk"
	"github.com/okian/strata/internal/domain/scoring"
	"github.com/okian/strata/internal/domain/validate"
	"github.com/okian/strata/pkg/logger"
	"github.com/okian/strata/pkg/metrics"
)

// Engine defaults.
const (
	defaultQueueSize       = 100000
	defaultDedupeSize      = 50000
	defaultConflictRadius  = 1.0
	defaultCellSize        = 1.0
	defaultConflictListCap = 50

	persistAttempts  = 3
	persistRetryWait = 50 * time.Millisecond
)

// IngestResult is the ingestion API response payload.
type IngestResult struct {
	RecordID  string
	GTCScore  *float64
	Duplicate bool
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithStore injects the persistence collaborator. Defaults to the in-memory
// grid store.
func WithStore(s repository.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.store = s
		}
	}
}

// WithWorkerCount sets the rescore worker count.
func WithWorkerCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workerCount = n
		}
	}
}

// WithQueueSize bounds the rescore queue.
func WithQueueSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// WithDedupeSize bounds the idempotency guard.
func WithDedupeSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.dedupeSize = n
		}
	}
}

// WithConflictRadius sets the neighbor search radius for conflict detection
// and consensus scoring, in distance-units.
func WithConflictRadius(r float64) Option {
	return func(e *Engine) {
		if r > 0 {
			e.conflictRadius = r
		}
	}
}

// WithCellSize sets the spatial serialization cell edge, in distance-units.
func WithCellSize(s float64) Option {
	return func(e *Engine) {
		if s > 0 {
			e.cellSize = s
		}
	}
}

// WithProfiles adds or overrides mineral domain profiles.
func WithProfiles(profiles ...model.MineralDomainProfile) Option {
	return func(e *Engine) {
		e.profiles = append(e.profiles, profiles...)
	}
}

// WithNow overrides the engine clock. Tests inject a fixed clock so scores
// replay exactly.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine is the reconciliation engine. There is no process-wide state: all
// collaborators are held by the instance and injected or defaulted at Start.
type Engine struct {
	mu sync.RWMutex

	store     repository.Store
	validator *validate.Validator
	detector  *conflict.Detector
	scorer    *scoring.Scorer
	assessor  *risk.Assessor
	registry  *risk.Registry
	guard     dedupe.Guard
	rescoreQ  queue.Queue
	pool      *worker.Pool
	locks     *cellLocks

	workerCount    int
	queueSize      int
	dedupeSize     int
	conflictRadius float64
	cellSize       float64
	profiles       []model.MineralDomainProfile
	now            func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs an Engine with default configuration. Call Start before use.
func New(opts ...Option) *Engine {
	e := &Engine{
		workerCount:    runtime.NumCPU() * 2,
		queueSize:      defaultQueueSize,
		dedupeSize:     defaultDedupeSize,
		conflictRadius: defaultConflictRadius,
		cellSize:       defaultCellSize,
		now:            time.Now,
		locks:          newCellLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start initializes the collaborators and launches the rescore pool.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}

	if e.store == nil {
		e.store = repository.NewGridStore(repository.WithCellSize(e.cellSize))
	}
	e.validator = validate.New(validate.WithNow(e.now))
	e.detector = conflict.New(
		conflict.WithRadius(e.conflictRadius),
		conflict.WithNow(e.now),
	)
	e.scorer = scoring.New(
		scoring.WithNow(e.now),
		scoring.WithNeighborRadius(e.conflictRadius),
	)
	e.registry = risk.NewRegistry(e.profiles...)
	e.assessor = risk.New(e.store, e.registry, risk.WithNow(e.now))
	e.guard = dedupe.NewInMemoryGuard(dedupe.WithMaxSize(e.dedupeSize))
	e.rescoreQ = queue.NewInMemoryQueue(queue.WithCapacity(e.queueSize))

	e.pool = worker.NewPool(e.rescoreQ, e.store, e.scorer,
		worker.WithWorkerCount(e.workerCount),
		worker.WithNeighborRadius(e.conflictRadius),
	)
	e.pool.Start(ctx)

	e.started = true
	e.logger.Info(ctx, "reconciliation engine started",
		logger.Int("workers", e.workerCount),
		logger.Float64("conflict_radius", e.conflictRadius),
		logger.Float64("cell_size", e.cellSize),
	)
	return nil
}

// Stop drains the rescore pool and shuts the engine down.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return
	}
	e.pool.Stop()
	if closer, ok := e.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	e.started = false
	e.logger.Info(context.Background(), "reconciliation engine stopped")
}

// Ingest runs the full pipeline for one payload: validate, serialize per
// spatial cell, detect conflicts, score, persist, annotate, and fan out
// neighbor rescores. Identical payloads are answered idempotently.
func (e *Engine) Ingest(ctx context.Context, payload validate.RawPayload) (IngestResult, error) {
	if err := e.ensureStarted(); err != nil {
		return IngestResult{}, err
	}

	rec, err := e.validator.Validate(ctx, payload)
	if err != nil {
		metrics.RecordIngestRejected("validation")
		return IngestResult{}, err
	}

	hash := rec.Provenance.IntegrityHash
	if existingID, seen := e.guard.SeenAndRecord(ctx, hash, rec.ID); seen {
		metrics.RecordIngestDuplicate()
		return e.duplicateResult(ctx, existingID)
	}

	release := e.locks.acquire(geo.CellKey(rec.Location, e.cellSize))
	defer release()

	neighbors, err := e.store.QueryNear(ctx, rec.Location, e.conflictRadius, nil)
	if err != nil {
		// Conflict detection is never silently skipped: without the
		// neighbor set the ingest fails retryably.
		e.guard.Unrecord(ctx, hash)
		metrics.RecordIngestRejected("neighbor_query")
		return IngestResult{}, fmt.Errorf("%w: %v", ErrConflictDetection, err)
	}

	findings, err := e.detector.Detect(ctx, &rec, neighbors)
	if err != nil {
		e.guard.Unrecord(ctx, hash)
		metrics.RecordIngestRejected("conflict_detection")
		return IngestResult{}, fmt.Errorf("%w: %v", ErrConflictDetection, err)
	}

	var gtc *float64
	score, err := e.scorer.Score(ctx, &rec, neighbors)
	switch {
	case errors.Is(err, scoring.ErrScoringInconsistency):
		// Fatal for this record only: persist it unscored, never guess.
		e.logger.Error(ctx, "scoring inconsistency, record left unscored",
			logger.String("record_id", rec.ID), logger.Error(err))
	case err != nil:
		e.guard.Unrecord(ctx, hash)
		metrics.RecordIngestRejected("scoring")
		return IngestResult{}, err
	default:
		gtc = &score
	}

	// Commit phase. Once the record is in, annotations run on a detached
	// context so a caller cancellation cannot leave a conflict without its
	// resolution.
	if err := e.putWithRetry(ctx, rec); err != nil {
		e.guard.Unrecord(ctx, hash)
		metrics.RecordIngestRejected("persistence")
		return IngestResult{}, err
	}
	commitCtx := context.WithoutCancel(ctx)

	if gtc != nil {
		if err := e.store.UpdateScore(commitCtx, rec.ID, *gtc); err != nil {
			e.logger.Error(ctx, "score write failed", logger.String("record_id", rec.ID), logger.Error(err))
		}
	}

	if err := e.annotateFindings(commitCtx, &rec, findings); err != nil {
		e.logger.Error(ctx, "conflict annotation failed", logger.String("record_id", rec.ID), logger.Error(err))
	}

	e.fanOutRescores(commitCtx, neighbors)

	metrics.RecordIngestAccepted()
	return IngestResult{RecordID: rec.ID, GTCScore: gtc}, nil
}

// putWithRetry retries timed-out persistence writes a bounded number of
// times before surfacing the failure as service-unavailable. Only the
// timeout kind is retried; any other store error fails immediately.
func (e *Engine) putWithRetry(ctx context.Context, rec model.MeasurementRecord) error {
	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = e.store.Put(ctx, rec); err == nil || !errors.Is(err, repository.ErrTimeout) {
			return err
		}
		if attempt == persistAttempts {
			break
		}
		e.logger.Warn(ctx, "persistence timed out, retrying",
			logger.String("record_id", rec.ID),
			logger.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(persistRetryWait):
		}
	}
	return err
}

// annotateFindings persists each conflict and the state of both sides. The
// new record is flagged (or put under review when it lost an ingest-order
// tie); raw fields on either side are never touched.
func (e *Engine) annotateFindings(ctx context.Context, rec *model.MeasurementRecord, findings []conflict.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	recState := model.ConflictFlagged
	recConflicts := make([]string, 0, len(findings))
	for _, f := range findings {
		if err := e.store.PutConflict(ctx, f.Conflict); err != nil {
			return fmt.Errorf("persist conflict: %w", err)
		}
		recConflicts = append(recConflicts, f.Conflict.ID)

		loser := f.Conflict.LoserID()
		if loser == rec.ID {
			if f.LoserState == model.ConflictUnderReview {
				recState = model.ConflictUnderReview
			}
			continue
		}
		state := model.ConflictFlagged
		if f.LoserState == model.ConflictUnderReview {
			state = model.ConflictUnderReview
		}
		if err := e.store.UpdateConflictState(ctx, loser, state, []string{f.Conflict.ID}); err != nil {
			return fmt.Errorf("annotate loser %s: %w", loser, err)
		}
		// The winning neighbor is still a conflict participant.
		winner := f.Conflict.WinnerID
		if winner != rec.ID {
			if err := e.store.UpdateConflictState(ctx, winner, model.ConflictFlagged, []string{f.Conflict.ID}); err != nil {
				return fmt.Errorf("annotate winner %s: %w", winner, err)
			}
		}
	}
	return e.store.UpdateConflictState(ctx, rec.ID, recState, recConflicts)
}

// fanOutRescores enqueues one rescore job per affected neighbor. Rescoring
// is strictly local: unrelated ingestion elsewhere never triggers it.
func (e *Engine) fanOutRescores(ctx context.Context, neighbors []model.MeasurementRecord) {
	for _, n := range neighbors {
		if ok := e.rescoreQ.Enqueue(ctx, queue.Job{RecordID: n.ID, Cause: "neighbor-ingested"}); !ok {
			e.logger.Warn(ctx, "rescore queue full, job dropped", logger.String("record_id", n.ID))
		}
	}
}

// duplicateResult answers an idempotent re-submission with the original
// record's id and current score.
func (e *Engine) duplicateResult(ctx context.Context, id string) (IngestResult, error) {
	res := IngestResult{RecordID: id, Duplicate: true}
	if rec, err := e.store.Get(ctx, id); err == nil {
		res.GTCScore = rec.GTCScore
	}
	return res, nil
}

// AssessRisk answers a dry-hole risk query. Pure read over committed
// records: a record ingested in the same instant may be missed, which is an
// accepted eventual-consistency property of the query path.
func (e *Engine) AssessRisk(ctx context.Context, q risk.Query) (model.RiskAssessment, error) {
	if err := e.ensureStarted(); err != nil {
		return model.RiskAssessment{}, err
	}

	start := time.Now()
	out, err := e.assessor.Assess(ctx, q)
	metrics.RecordRiskQueryLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return model.RiskAssessment{}, err
	}
	metrics.RecordRiskQuery()
	return out, nil
}

// GetRecord returns a stored record by id.
func (e *Engine) GetRecord(ctx context.Context, id string) (model.MeasurementRecord, error) {
	if err := e.ensureStarted(); err != nil {
		return model.MeasurementRecord{}, err
	}
	return e.store.Get(ctx, id)
}

// RecentConflicts lists conflicts newest first, capped at limit.
func (e *Engine) RecentConflicts(ctx context.Context, limit int) ([]model.ConflictRecord, error) {
	if err := e.ensureStarted(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultConflictListCap
	}
	return e.store.RecentConflicts(ctx, limit)
}

// PromoteStatus moves a record's validation status forward and refreshes
// its score, since the validation multiplier changed.
func (e *Engine) PromoteStatus(ctx context.Context, id string, status model.ValidationStatus) error {
	if err := e.ensureStarted(); err != nil {
		return err
	}
	if err := e.store.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	if ok := e.rescoreQ.Enqueue(ctx, queue.Job{RecordID: id, Cause: "status-promoted"}); !ok {
		e.logger.Warn(ctx, "rescore queue full after status promotion", logger.String("record_id", id))
	}
	return nil
}

// Stats returns an operational snapshot for monitoring.
func (e *Engine) Stats(ctx context.Context) map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := map[string]any{
		"started":         e.started,
		"worker_count":    e.workerCount,
		"queue_size":      e.queueSize,
		"conflict_radius": e.conflictRadius,
	}
	if e.started {
		stats["records"] = e.store.Count(ctx)
		stats["rescore_queue_depth"] = e.rescoreQ.Len(ctx)
		stats["dedupe_entries"] = e.guard.Size()
		stats["commodities"] = e.registry.Commodities()
	}
	return stats
}

func (e *Engine) ensureStarted() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.started {
		return ErrNotStarted
	}
	return nil
}
