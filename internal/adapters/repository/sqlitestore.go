package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // register the sqlite driver

	"github.com/okian/strata/internal/domain/geo"
	"github.com/okian/strata/internal/domain/model"
)

// SQLiteStore is the durable Store used when the engine is configured for
// audit-grade persistence. Records are stored as canonical JSON with
// indexed coordinate columns for bounding-box neighbor queries; the exact
// radius filter runs in Go.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite database at dsn and applies WAL
// mode plus a busy timeout.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite exec %s: %w", pragma, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	id             TEXT PRIMARY KEY,
	latitude       REAL NOT NULL,
	longitude      REAL NOT NULL,
	depth_top      REAL NOT NULL,
	type           TEXT NOT NULL,
	conflict_state TEXT NOT NULL,
	status         TEXT NOT NULL,
	gtc_score      REAL,
	integrity_hash TEXT NOT NULL,
	ingested_at    DATETIME NOT NULL,
	data           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conflicts (
	id          TEXT PRIMARY KEY,
	record_id   TEXT NOT NULL REFERENCES records(id),
	neighbor_id TEXT NOT NULL REFERENCES records(id),
	severity    TEXT NOT NULL,
	detected_at DATETIME NOT NULL,
	data        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_lat_lon ON records(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_records_type ON records(type);
CREATE INDEX IF NOT EXISTS idx_conflicts_detected_at ON conflicts(detected_at);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a record.
func (s *SQLiteStore) Put(ctx context.Context, rec model.MeasurementRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sqlite marshal record: %w", err)
	}
	var gtc any
	if rec.GTCScore != nil {
		gtc = *rec.GTCScore
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, latitude, longitude, depth_top, type, conflict_state, status, gtc_score, integrity_hash, ingested_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			conflict_state = excluded.conflict_state,
			status         = excluded.status,
			gtc_score      = excluded.gtc_score,
			data           = excluded.data`,
		rec.ID, rec.Location.Latitude, rec.Location.Longitude, rec.Location.DepthTop,
		string(rec.Measurement.Type), string(rec.Conflict), string(rec.Status), gtc,
		rec.Provenance.IntegrityHash, rec.Provenance.IngestedAt, string(buf),
	)
	return wrapSQLErr("insert record", err)
}

// Get returns a record by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.MeasurementRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM records WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MeasurementRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return model.MeasurementRecord{}, wrapSQLErr("get record", err)
	}
	return decodeRecord(data)
}

// QueryNear uses the coordinate index for a bounding box pass and filters
// by exact planar distance.
func (s *SQLiteStore) QueryNear(ctx context.Context, loc model.Location, radius float64, typeFilter []model.MeasurementType) ([]model.MeasurementRecord, error) {
	query := `SELECT data FROM records
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`
	args := []any{loc.Latitude - radius, loc.Latitude + radius, loc.Longitude - radius, loc.Longitude + radius}
	if len(typeFilter) > 0 {
		query += ` AND type IN (?` + repeatPlaceholder(len(typeFilter)-1) + `)`
		for _, t := range typeFilter {
			args = append(args, string(t))
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapSQLErr("query near", err)
	}
	defer rows.Close()

	var out []model.MeasurementRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, wrapSQLErr("scan record", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		if geo.Distance(loc, rec.Location) <= radius {
			out = append(out, rec)
		}
	}
	return out, wrapSQLErr("iterate records", rows.Err())
}

// PutConflict appends a conflict annotation.
func (s *SQLiteStore) PutConflict(ctx context.Context, c model.ConflictRecord) error {
	buf, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("sqlite marshal conflict: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conflicts (id, record_id, neighbor_id, severity, detected_at, data)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.RecordID, c.NeighborID, string(c.Severity), c.DetectedAt, string(buf),
	)
	return wrapSQLErr("insert conflict", err)
}

// UpdateConflictState rewrites the stored JSON with the new annotation.
func (s *SQLiteStore) UpdateConflictState(ctx context.Context, id string, state model.ConflictState, conflictIDs []string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rec.Conflict = state
	rec.ConflictIDs = append(rec.ConflictIDs, conflictIDs...)
	return s.Put(ctx, rec)
}

// UpdateScore sets the computed GTC.
func (s *SQLiteStore) UpdateScore(ctx context.Context, id string, score float64) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rec.GTCScore = &score
	return s.Put(ctx, rec)
}

// UpdateStatus promotes validation status, forward only.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status model.ValidationStatus) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !rec.Status.CanPromoteTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, rec.Status, status)
	}
	rec.Status = status
	return s.Put(ctx, rec)
}

// RecentConflicts returns up to limit conflicts, newest first.
func (s *SQLiteStore) RecentConflicts(ctx context.Context, limit int) ([]model.ConflictRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM conflicts ORDER BY detected_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, wrapSQLErr("query conflicts", err)
	}
	defer rows.Close()

	var out []model.ConflictRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, wrapSQLErr("scan conflict", err)
		}
		var c model.ConflictRecord
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("sqlite decode conflict: %w", err)
		}
		out = append(out, c)
	}
	return out, wrapSQLErr("iterate conflicts", rows.Err())
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func decodeRecord(data string) (model.MeasurementRecord, error) {
	var rec model.MeasurementRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return model.MeasurementRecord{}, fmt.Errorf("sqlite decode record: %w", err)
	}
	return rec, nil
}

// wrapSQLErr classifies context expiry as the retryable timeout kind and
// wraps everything else verbatim.
func wrapSQLErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("sqlite %s: %w", op, err)
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
