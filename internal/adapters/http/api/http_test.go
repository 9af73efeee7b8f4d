package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/strata/internal/adapters/http/api"
	"github.com/okian/strata/internal/adapters/repository"
	service "github.com/okian/strata/internal/app"
	"github.com/okian/strata/internal/domain/model"
	"github.com/okian/strata/internal/domain/risk"
	"github.com/okian/strata/internal/domain/validate"
)

// fakeDeps is a scripted engine: each field holds the canned answer for one
// dependency call, and the fake records what it was asked.
type fakeDeps struct {
	ingestRes service.IngestResult
	ingestErr error

	record    model.MeasurementRecord
	recordErr error

	promoteErr    error
	promotedID    string
	promotedState model.ValidationStatus

	riskOut model.RiskAssessment
	riskErr error
	riskQ   risk.Query

	conflicts     []model.ConflictRecord
	conflictsErr  error
	conflictLimit int

	stats map[string]any
}

func (f *fakeDeps) Ingest(_ context.Context, _ validate.RawPayload) (service.IngestResult, error) {
	return f.ingestRes, f.ingestErr
}

func (f *fakeDeps) GetRecord(_ context.Context, _ string) (model.MeasurementRecord, error) {
	return f.record, f.recordErr
}

func (f *fakeDeps) PromoteStatus(_ context.Context, id string, status model.ValidationStatus) error {
	f.promotedID = id
	f.promotedState = status
	return f.promoteErr
}

func (f *fakeDeps) AssessRisk(_ context.Context, q risk.Query) (model.RiskAssessment, error) {
	f.riskQ = q
	return f.riskOut, f.riskErr
}

func (f *fakeDeps) RecentConflicts(_ context.Context, limit int) ([]model.ConflictRecord, error) {
	f.conflictLimit = limit
	return f.conflicts, f.conflictsErr
}

func (f *fakeDeps) Stats(_ context.Context) map[string]any {
	return f.stats
}

func newTestServer(deps *fakeDeps, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func floatPtr(v float64) *float64 { return &v }

func TestPostRecordCreated(t *testing.T) {
	deps := &fakeDeps{ingestRes: service.IngestResult{RecordID: "rec-1", GTCScore: floatPtr(0.7524)}}
	mux := newTestServer(deps)

	rr := doJSON(t, mux, http.MethodPost, "/records", map[string]any{
		"latitude": 34.05, "longitude": -106.2, "depth_top": 120,
		"measurement_type": "assay-grade", "value": 1.8, "unit": "g/t",
		"source_tier": "client-proprietary", "source_id": "lab-7",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var got struct {
		RecordID string   `json:"record_id"`
		GTCScore *float64 `json:"gtc_score"`
		Success  bool     `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "rec-1", got.RecordID)
	require.NotNil(t, got.GTCScore)
	assert.InDelta(t, 0.7524, *got.GTCScore, 1e-9)
	assert.True(t, got.Success)
}

func TestPostRecordDuplicateIsOK(t *testing.T) {
	deps := &fakeDeps{ingestRes: service.IngestResult{RecordID: "rec-1", Duplicate: true}}
	mux := newTestServer(deps)

	rr := doJSON(t, mux, http.MethodPost, "/records", map[string]any{"source_id": "lab-7"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"duplicate":true`)
}

func TestPostRecordErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"validation", &validate.FieldError{Field: "latitude", Reason: "out of range"}, http.StatusBadRequest, "validation_error"},
		{"conflict detection", service.ErrConflictDetection, http.StatusServiceUnavailable, "conflict_detection_unavailable"},
		{"store timeout", repository.ErrTimeout, http.StatusServiceUnavailable, "persistence_timeout"},
		{"unknown", context.DeadlineExceeded, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := newTestServer(&fakeDeps{ingestErr: tc.err})
			rr := doJSON(t, mux, http.MethodPost, "/records", map[string]any{})
			assert.Equal(t, tc.wantCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.wantKind)
		})
	}
}

func TestPostRecordRejectsMalformedBody(t *testing.T) {
	mux := newTestServer(&fakeDeps{})
	req := httptest.NewRequest(http.MethodPost, "/records", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetRecordByID(t *testing.T) {
	deps := &fakeDeps{record: model.MeasurementRecord{ID: "rec-1", Status: model.StatusQCPassed}}
	mux := newTestServer(deps)

	rr := doJSON(t, mux, http.MethodGet, "/records/rec-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":"rec-1"`)
}

func TestGetRecordNotFound(t *testing.T) {
	mux := newTestServer(&fakeDeps{recordErr: repository.ErrNotFound})
	rr := doJSON(t, mux, http.MethodGet, "/records/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPromoteStatus(t *testing.T) {
	deps := &fakeDeps{}
	mux := newTestServer(deps)

	rr := doJSON(t, mux, http.MethodPost, "/records/rec-1/status", map[string]string{"status": "qc-passed"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "rec-1", deps.promotedID)
	assert.Equal(t, model.StatusQCPassed, deps.promotedState)
}

func TestPromoteStatusRegressionConflicts(t *testing.T) {
	mux := newTestServer(&fakeDeps{promoteErr: repository.ErrStatusRegression})
	rr := doJSON(t, mux, http.MethodPost, "/records/rec-1/status", map[string]string{"status": "raw"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "status_regression")
}

func TestPromoteStatusRejectsUnknownStatus(t *testing.T) {
	mux := newTestServer(&fakeDeps{})
	rr := doJSON(t, mux, http.MethodPost, "/records/rec-1/status", map[string]string{"status": "golden"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetRisk(t *testing.T) {
	deps := &fakeDeps{riskOut: model.RiskAssessment{
		RiskPercent:    42.5,
		RiskCategory:   "moderate",
		FailureMode:    model.FailureGrade,
		Recommendation: "acquire additional data",
	}}
	mux := newTestServer(deps)

	rr := doJSON(t, mux, http.MethodGet, "/risk?lat=34.05&lon=-106.2&commodity=gold&radius=2.5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "42.5")

	assert.InDelta(t, 34.05, deps.riskQ.Latitude, 1e-9)
	assert.InDelta(t, -106.2, deps.riskQ.Longitude, 1e-9)
	assert.Equal(t, "gold", deps.riskQ.Commodity)
	assert.InDelta(t, 2.5, deps.riskQ.Radius, 1e-9)
}

func TestGetRiskParamValidation(t *testing.T) {
	mux := newTestServer(&fakeDeps{})
	cases := []struct {
		name   string
		target string
	}{
		{"missing lat", "/risk?lon=-106.2&commodity=gold"},
		{"lat out of range", "/risk?lat=91&lon=-106.2&commodity=gold"},
		{"lon out of range", "/risk?lat=34&lon=181&commodity=gold"},
		{"missing commodity", "/risk?lat=34&lon=-106.2"},
		{"negative radius", "/risk?lat=34&lon=-106.2&commodity=gold&radius=-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, mux, http.MethodGet, tc.target, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestGetRiskUnknownCommodity(t *testing.T) {
	mux := newTestServer(&fakeDeps{riskErr: risk.ErrUnknownCommodity})
	rr := doJSON(t, mux, http.MethodGet, "/risk?lat=34&lon=-106.2&commodity=unobtainium", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown_commodity")
}

func TestGetConflicts(t *testing.T) {
	deps := &fakeDeps{conflicts: []model.ConflictRecord{
		{ID: "conflict-1", Severity: model.SeverityHigh},
	}}
	mux := newTestServer(deps)

	rr := doJSON(t, mux, http.MethodGet, "/conflicts", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"count":1`)
	assert.Equal(t, 50, deps.conflictLimit)
}

func TestGetConflictsLimitClamped(t *testing.T) {
	deps := &fakeDeps{}
	mux := newTestServer(deps, api.WithMaxConflictLimit(100))

	rr := doJSON(t, mux, http.MethodGet, "/conflicts?limit=5000", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 100, deps.conflictLimit)
	// Empty listing still serializes as an array.
	assert.Contains(t, rr.Body.String(), `"conflicts":[]`)
}

func TestGetConflictsRejectsBadLimit(t *testing.T) {
	mux := newTestServer(&fakeDeps{})
	rr := doJSON(t, mux, http.MethodGet, "/conflicts?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthz(t *testing.T) {
	mux := newTestServer(&fakeDeps{})
	rr := doJSON(t, mux, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}

func TestStats(t *testing.T) {
	mux := newTestServer(&fakeDeps{stats: map[string]any{"records": 7, "started": true}})
	rr := doJSON(t, mux, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"records":7`)
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestServer(&fakeDeps{})
	for _, target := range []string{"/records", "/risk", "/conflicts"} {
		method := http.MethodGet
		if target != "/records" {
			method = http.MethodDelete
		}
		rr := doJSON(t, mux, method, target, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, target)
	}
}
