package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/strata/internal/domain/risk"
)

// RiskHandler answers dry-hole risk queries.
type RiskHandler struct {
	deps Dependencies
}

// NewRiskHandler creates a risk handler.
func NewRiskHandler(deps Dependencies) *RiskHandler {
	return &RiskHandler{deps: deps}
}

// HandleGetRisk handles GET /risk?lat=&lon=&commodity=&radius=.
func (h *RiskHandler) HandleGetRisk(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_risk"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	commodity := q.Get("commodity")
	if commodity == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	var radius float64
	if raw := q.Get("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}

	assessment, err := h.deps.AssessRisk(r.Context(), risk.Query{
		Latitude:  lat,
		Longitude: lon,
		Commodity: commodity,
		Radius:    radius,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, assessment)
	case errors.Is(err, risk.ErrUnknownCommodity):
		writeError(w, http.StatusBadRequest, "unknown_commodity", err)
	case errors.Is(err, risk.ErrNeighborQuery):
		writeError(w, http.StatusServiceUnavailable, "neighbor_query_failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
