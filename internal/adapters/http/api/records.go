package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/strata/internal/adapters/repository"
	service "github.com/okian/strata/internal/app"
	"github.com/okian/strata/internal/domain/model"
	"github.com/okian/strata/internal/domain/validate"
)

// RecordsHandler handles record ingestion and retrieval.
type RecordsHandler struct {
	deps Dependencies
}

// NewRecordsHandler creates a records handler.
func NewRecordsHandler(deps Dependencies) *RecordsHandler {
	return &RecordsHandler{deps: deps}
}

// ingestResponse mirrors the ingestion API contract.
type ingestResponse struct {
	RecordID  string   `json:"record_id"`
	GTCScore  *float64 `json:"gtc_score"`
	Success   bool     `json:"success"`
	Duplicate bool     `json:"duplicate,omitempty"`
}

// HandleRecords handles POST /records.
func (h *RecordsHandler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_record"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var payload validate.RawPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Ingest(r.Context(), payload)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, ingestResponse{
		RecordID:  res.RecordID,
		GTCScore:  res.GTCScore,
		Success:   true,
		Duplicate: res.Duplicate,
	})
}

// HandleRecordByID handles GET /records/{id} and POST /records/{id}/status.
func (h *RecordsHandler) HandleRecordByID(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_by_id"
	rest := strings.TrimPrefix(r.URL.Path, "/records/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if id, found := strings.CutSuffix(rest, "/status"); found {
		h.handlePromoteStatus(w, r, id)
		return
	}

	if r.Method != http.MethodGet || strings.Contains(rest, "/") {
		http.NotFound(w, r)
		return
	}
	rec, err := h.deps.GetRecord(r.Context(), rest)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// statusRequest carries a validation-status promotion.
type statusRequest struct {
	Status string `json:"status"`
}

func (h *RecordsHandler) handlePromoteStatus(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.promote_status"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	status := model.ValidationStatus(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	err := h.deps.PromoteStatus(r.Context(), id, status)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"record_id": id, "status": status})
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrStatusRegression):
		writeError(w, http.StatusConflict, "status_regression", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// writeIngestError maps engine error kinds onto the wire contract.
func writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, validate.ErrValidation):
		// Surfaced verbatim: the message names the offending field.
		writeError(w, http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, service.ErrConflictDetection):
		writeError(w, http.StatusServiceUnavailable, "conflict_detection_unavailable", err)
	case errors.Is(err, repository.ErrTimeout):
		writeError(w, http.StatusServiceUnavailable, "persistence_timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
