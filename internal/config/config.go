// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; file and env layers override them in Load.
// - Mineral domain profiles may be overridden wholesale from YAML.
package config

import (
	"runtime"

	"github.com/okian/strata/internal/domain/model"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the persistence collaborator: memory or sqlite.
	StoreBackend string `koanf:"store_backend"`

	// SQLitePath locates the database file when store_backend is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// RescoreQueueSize bounds the in-memory rescore queue.
	RescoreQueueSize int `koanf:"rescore_queue_size"`

	// WorkerCount sets the number of rescore workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the integrity-hash idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ConflictRadius is the neighbor search radius for conflict detection
	// and consensus scoring, in distance-units.
	ConflictRadius float64 `koanf:"conflict_radius"`

	// CellSize is the spatial serialization cell edge, in distance-units.
	CellSize float64 `koanf:"cell_size"`

	// MaxConflictLimit caps GET /conflicts?limit.
	MaxConflictLimit int `koanf:"max_conflict_limit"`

	// Profiles overrides or extends the built-in mineral domain profiles.
	Profiles []model.MineralDomainProfile `koanf:"profiles"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		StoreBackend:     StoreMemory,
		SQLitePath:       "strata.db",
		RescoreQueueSize: 100_000,
		WorkerCount:      runtime.NumCPU() * 2,
		DedupeSize:       50_000,
		ConflictRadius:   1.0,
		CellSize:         1.0,
		MaxConflictLimit: 500,
	}
}
