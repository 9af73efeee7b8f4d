package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/strata/internal/domain/geo"
	"github.com/okian/strata/internal/domain/model"
	"github.com/okian/strata/pkg/metrics"
)

// Option applies a configuration option to the GridStore.
type Option func(*GridStore)

// WithCellSize sets the spatial bucket edge length in distance-units.
func WithCellSize(size float64) Option {
	return func(s *GridStore) {
		if size > 0 {
			s.cellSize = size
		}
	}
}

// GridStore is the default in-memory Store. Records are bucketed into a
// coarse spatial grid so neighbor queries scan a handful of cells instead of
// the whole set. Reads return copies; callers never observe in-place writes.
type GridStore struct {
	mu        sync.RWMutex
	records   map[string]model.MeasurementRecord
	cells     map[string][]string // cell key -> record ids
	conflicts []model.ConflictRecord
	cellSize  float64
}

// NewGridStore creates an empty grid store.
func NewGridStore(opts ...Option) *GridStore {
	s := &GridStore{
		records:  make(map[string]model.MeasurementRecord),
		cells:    make(map[string][]string),
		cellSize: 1.0,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put inserts or replaces a record.
func (s *GridStore) Put(ctx context.Context, rec model.MeasurementRecord) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; !exists {
		key := geo.CellKey(rec.Location, s.cellSize)
		s.cells[key] = append(s.cells[key], rec.ID)
	}
	s.records[rec.ID] = cloneRecord(rec)
	metrics.UpdateRecordsTotal(len(s.records))
	return nil
}

// Get returns a record by id.
func (s *GridStore) Get(ctx context.Context, id string) (model.MeasurementRecord, error) {
	if err := ctxErr(ctx); err != nil {
		return model.MeasurementRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return model.MeasurementRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneRecord(rec), nil
}

// QueryNear scans the cells intersecting the search square and filters by
// exact distance and measurement type.
func (s *GridStore) QueryNear(ctx context.Context, loc model.Location, radius float64, typeFilter []model.MeasurementType) ([]model.MeasurementRecord, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := typeSet(typeFilter)
	var out []model.MeasurementRecord
	for _, key := range geo.CellKeysWithin(loc, radius, s.cellSize) {
		for _, id := range s.cells[key] {
			rec, ok := s.records[id]
			if !ok {
				continue
			}
			if wanted != nil {
				if _, match := wanted[rec.Measurement.Type]; !match {
					continue
				}
			}
			if geo.Distance(loc, rec.Location) <= radius {
				out = append(out, cloneRecord(rec))
			}
		}
	}
	return out, nil
}

// PutConflict appends a conflict annotation.
func (s *GridStore) PutConflict(ctx context.Context, c model.ConflictRecord) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conflicts = append(s.conflicts, c)
	metrics.RecordConflictDetected(string(c.Severity))
	return nil
}

// UpdateConflictState annotates the record's conflict state only.
func (s *GridStore) UpdateConflictState(ctx context.Context, id string, state model.ConflictState, conflictIDs []string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec.Conflict = state
	rec.ConflictIDs = append(append([]string(nil), rec.ConflictIDs...), conflictIDs...)
	s.records[id] = rec
	return nil
}

// UpdateScore sets the record's GTC.
func (s *GridStore) UpdateScore(ctx context.Context, id string, score float64) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	v := score
	rec.GTCScore = &v
	s.records[id] = rec
	metrics.ObserveGTCScore(score)
	return nil
}

// UpdateStatus promotes the record's validation status, forward only.
func (s *GridStore) UpdateStatus(ctx context.Context, id string, status model.ValidationStatus) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !rec.Status.CanPromoteTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, rec.Status, status)
	}
	rec.Status = status
	s.records[id] = rec
	return nil
}

// RecentConflicts returns up to limit conflicts, newest first.
func (s *GridStore) RecentConflicts(ctx context.Context, limit int) ([]model.ConflictRecord, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.conflicts) {
		limit = len(s.conflicts)
	}
	out := make([]model.ConflictRecord, 0, limit)
	for i := len(s.conflicts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.conflicts[i])
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *GridStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ctxErr maps context expiry onto the retryable persistence timeout kind.
func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return nil
}

// cloneRecord deep-copies the mutable reference fields so callers cannot
// alias store state.
func cloneRecord(rec model.MeasurementRecord) model.MeasurementRecord {
	out := rec
	if rec.GTCScore != nil {
		v := *rec.GTCScore
		out.GTCScore = &v
	}
	if rec.Location.DepthBottom != nil {
		v := *rec.Location.DepthBottom
		out.Location.DepthBottom = &v
	}
	if rec.Measurement.Value != nil {
		v := *rec.Measurement.Value
		out.Measurement.Value = &v
	}
	if rec.Measurement.DetectionLimit != nil {
		v := *rec.Measurement.DetectionLimit
		out.Measurement.DetectionLimit = &v
	}
	out.ConflictIDs = append([]string(nil), rec.ConflictIDs...)
	out.Provenance.ChainOfCustody = append([]string(nil), rec.Provenance.ChainOfCustody...)
	return out
}

func typeSet(filter []model.MeasurementType) map[model.MeasurementType]struct{} {
	if len(filter) == 0 {
		return nil
	}
	set := make(map[model.MeasurementType]struct{}, len(filter))
	for _, t := range filter {
		set[t] = struct{}{}
	}
	return set
}
