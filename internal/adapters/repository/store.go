// Package repository defines the persistence contract for measurement
// records and conflict annotations, plus the bundled implementations.
package repository

import (
	"context"

	"github.com/okian/strata/internal/domain/model"
)

// Store provides access to records and conflicts. Implementations guarantee
// sequential consistency per key; no cross-record transactions are assumed.
// All calls honor the caller's context deadline and surface ErrTimeout when
// it expires, which callers treat as retryable.
type Store interface {
	// Put inserts or replaces a record.
	Put(ctx context.Context, rec model.MeasurementRecord) error

	// Get returns a record by id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.MeasurementRecord, error)

	// QueryNear returns records within radius distance-units of loc,
	// optionally filtered to the given measurement types.
	QueryNear(ctx context.Context, loc model.Location, radius float64, typeFilter []model.MeasurementType) ([]model.MeasurementRecord, error)

	// PutConflict appends a conflict annotation. Conflicts are never
	// updated or deleted.
	PutConflict(ctx context.Context, c model.ConflictRecord) error

	// UpdateConflictState annotates a record's conflict state and conflict
	// references without touching any raw field.
	UpdateConflictState(ctx context.Context, id string, state model.ConflictState, conflictIDs []string) error

	// UpdateScore sets the computed GTC for a record.
	UpdateScore(ctx context.Context, id string, score float64) error

	// UpdateStatus promotes a record's validation status. Implementations
	// reject non-monotonic transitions with ErrStatusRegression.
	UpdateStatus(ctx context.Context, id string, status model.ValidationStatus) error

	// RecentConflicts returns up to limit conflicts, newest first.
	RecentConflicts(ctx context.Context, limit int) ([]model.ConflictRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int
}
