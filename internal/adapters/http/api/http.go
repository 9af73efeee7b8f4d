// Package api declares HTTP contracts and route registration helpers for
// the reconciliation engine.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/strata/internal/app"
	"github.com/okian/strata/internal/domain/model"
	"github.com/okian/strata/internal/domain/risk"
	"github.com/okian/strata/internal/domain/validate"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the engine implementation.
type Dependencies interface {
	Ingest(ctx context.Context, payload validate.RawPayload) (service.IngestResult, error)
	GetRecord(ctx context.Context, id string) (model.MeasurementRecord, error)
	PromoteStatus(ctx context.Context, id string, status model.ValidationStatus) error
	AssessRisk(ctx context.Context, q risk.Query) (model.RiskAssessment, error)
	RecentConflicts(ctx context.Context, limit int) ([]model.ConflictRecord, error)
	Stats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the engine API.
type Server struct {
	records   *RecordsHandler
	riskH     *RiskHandler
	conflicts *ConflictsHandler
	health    *HealthHandler
	stats     *StatsHandler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxConflictLimit caps the conflicts listing limit.
func WithMaxConflictLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.conflicts.maxLimit = n
		}
	}
}

// NewServer creates an API server over deps.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		records:   NewRecordsHandler(deps),
		riskH:     NewRiskHandler(deps),
		conflicts: NewConflictsHandler(deps),
		health:    NewHealthHandler(),
		stats:     NewStatsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.health.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.stats.HandleStats, "stats"))
	mux.HandleFunc("/records", MetricsMiddleware(s.records.HandleRecords, "records"))
	mux.HandleFunc("/records/", MetricsMiddleware(s.records.HandleRecordByID, "record"))
	mux.HandleFunc("/risk", MetricsMiddleware(s.riskH.HandleGetRisk, "risk"))
	mux.HandleFunc("/conflicts", MetricsMiddleware(s.conflicts.HandleGetConflicts, "conflicts"))
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the structured error body. Failures are surfaced loudly:
// no fabricated success, no synthetic data in place of missing input.
func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	details := ""
	if err != nil {
		details = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code, Details: details})
}
