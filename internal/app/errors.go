package service

import "errors"

// Sentinel kinds for engine errors.
var (
	// ErrConflictDetection marks an ingest that failed because the spatial
	// neighbor query was unavailable. Retryable; conflict detection is
	// never silently skipped.
	ErrConflictDetection = errors.New("conflict detection unavailable")

	// ErrNotStarted marks calls against an engine before Start.
	ErrNotStarted = errors.New("engine not started")
)
