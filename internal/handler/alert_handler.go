package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/dandantas/odoo-probe/internal/model"
)

// AlertQuerier reads and acknowledges alert logs
type AlertQuerier interface {
	List(ctx context.Context, kind, status, acknowledgmentStatus, from, to string, page, limit int) ([]model.AlertLogSummary, int64, error)
	Acknowledge(ctx context.Context, alertID, acknowledgedBy string) error
}

// AlertHandler handles alert log queries
type AlertHandler struct {
	service AlertQuerier
}

// NewAlertHandler creates a new alert handler. A nil service answers 503.
func NewAlertHandler(service AlertQuerier) *AlertHandler {
	return &AlertHandler{
		service: service,
	}
}

// List handles GET /api/v1/alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
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

	summaries, total, err := h.service.List(r.Context(),
		query.Get("kind"),
		query.Get("status"),
		query.Get("acknowledgment_status"),
		query.Get("from"),
		query.Get("to"),
		page, limit,
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[model.AlertLogSummary]{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Results: summaries,
	})
}

// AcknowledgeRequest represents the acknowledge alert request
type AcknowledgeRequest struct {
	AcknowledgedBy string `json:"acknowledged_by"`
}

// Acknowledge handles PATCH /api/v1/alerts/{id}/acknowledge
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		historyDisabled(w)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	alertID := strings.TrimSuffix(path, "/acknowledge")
	if alertID == "" {
		writeError(w, http.StatusBadRequest, "alert ID is required")
		return
	}

	var req AcknowledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Acknowledge(r.Context(), alertID, req.AcknowledgedBy); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "alert acknowledged successfully",
	})
}
