package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/dandantas/odoo-probe/internal/model"
)

// HistoryQuerier reads recorded probe runs
type HistoryQuerier interface {
	List(ctx context.Context, result, from, to string, page, limit int) ([]model.ProbeSummary, int64, error)
	GetByCorrelationID(ctx context.Context, correlationID string) (*model.ProbeExecution, error)
}

// HistoryHandler handles probe history queries
type HistoryHandler struct {
	service HistoryQuerier
}

// NewHistoryHandler creates a new history handler. A nil service answers 503.
func NewHistoryHandler(service HistoryQuerier) *HistoryHandler {
	return &HistoryHandler{
		service: service,
	}
}

// List handles GET /api/v1/probes
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if h.service == nil {
		historyDisabled(w)
		return
	}

	query := r.URL.Query()
	page, limit := parsePagination(r)

	summaries, total, err := h.service.List(r.Context(), query.Get("result"), query.Get("from"), query.Get("to"), page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[model.ProbeSummary]{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Results: summaries,
	})
}

// Get handles GET /api/v1/probes/{correlation_id}
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if h.service == nil {
		historyDisabled(w)
		return
	}

	correlationID := strings.TrimPrefix(r.URL.Path, "/api/v1/probes/")
	if correlationID == "" || strings.Contains(correlationID, "/") {
		writeError(w, http.StatusNotFound, "Endpoint not found")
		return
	}

	execution, err := h.service.GetByCorrelationID(r.Context(), correlationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, execution)
}
