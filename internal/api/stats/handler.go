// Package stats serves the aggregates maintained by the background workers.
package stats

import (
	"encoding/json"
	"net/http"
	"strconv"

	"pythia/internal/domain/stats"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

// Handler serves /stats/*.
type Handler struct {
	repo stats.Repository // nil reports the feature as disabled
	log  *logger.Logger
}

// New creates the stats handler.
func New(repo stats.Repository, log *logger.Logger) *Handler {
	return &Handler{repo: repo, log: log}
}

// Register mounts the stats routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /stats/market", h.HandleMarketStats)
	mux.HandleFunc("GET /stats/category", h.HandleCategoryStats)
}

func (h *Handler) HandleMarketStats(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		disabled(w)
		return
	}

	if conditionID := r.URL.Query().Get("condition_id"); conditionID != "" {
		row, err := h.repo.MarketStatsByCondition(r.Context(), conditionID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "No statistics for this market."})
				return
			}
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, row)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	rows, err := h.repo.TopMarketStats(r.Context(), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"markets": rows, "count": len(rows)})
}

func (h *Handler) HandleCategoryStats(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		disabled(w)
		return
	}
	rows, err := h.repo.ListCategoryStats(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": rows, "count": len(rows)})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.log.Errorw("Stats query failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load statistics."})
}

func disabled(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "Statistics are not enabled."})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
