package api

import (
	"net/http"
	"strconv"

	"github.com/okian/strata/internal/domain/model"
)

const defaultConflictLimit = 50

// ConflictsHandler lists recently detected conflicts.
type ConflictsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewConflictsHandler creates a conflicts handler.
func NewConflictsHandler(deps Dependencies) *ConflictsHandler {
	return &ConflictsHandler{deps: deps, maxLimit: 500}
}

type conflictsResponse struct {
	Conflicts []model.ConflictRecord `json:"conflicts"`
	Count     int                    `json:"count"`
}

// HandleGetConflicts handles GET /conflicts?limit=.
func (h *ConflictsHandler) HandleGetConflicts(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_conflicts"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := defaultConflictLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	conflicts, err := h.deps.RecentConflicts(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if conflicts == nil {
		conflicts = []model.ConflictRecord{}
	}
	writeJSON(w, http.StatusOK, conflictsResponse{Conflicts: conflicts, Count: len(conflicts)})
}
