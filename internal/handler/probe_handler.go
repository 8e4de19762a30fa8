package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dandantas/odoo-probe/internal/model"
	"github.com/dandantas/odoo-probe/internal/worker"
	"github.com/dandantas/odoo-probe/pkg/middleware"
)

// ProbeRunner queues on-demand probe runs
type ProbeRunner interface {
	Run(ctx context.Context, trigger, correlationID string) (*model.ProbeExecution, error)
	SubmitAsync(trigger, correlationID string) (model.JobStatus, error)
	JobStatus(jobID string) (model.JobStatus, bool)
}

// ProbeHandler handles on-demand probe runs
type ProbeHandler struct {
	runner ProbeRunner
}

// NewProbeHandler creates a new probe handler
func NewProbeHandler(runner ProbeRunner) *ProbeHandler {
	return &ProbeHandler{
		runner: runner,
	}
}

// AsyncResponse represents async execution response
type AsyncResponse struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id"`
	Message       string `json:"message"`
}

// Run handles POST /api/v1/probes/run
func (h *ProbeHandler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	correlationID := middleware.GetCorrelationID(r.Context())
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	if parseQueryBool(r, "async") {
		status, err := h.runner.SubmitAsync(model.TriggerManual, correlationID)
		if err != nil {
			writeRunError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, AsyncResponse{
			JobID:         status.JobID,
			Status:        status.Status,
			CorrelationID: correlationID,
			Message:       "Probe run queued successfully",
		})
		return
	}

	execution, err := h.runner.Run(r.Context(), model.TriggerManual, correlationID)
	if err != nil {
		writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, execution)
}

// Job handles GET /api/v1/probes/jobs/{id}
func (h *ProbeHandler) Job(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/v1/probes/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		writeError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	status, ok := h.runner.JobStatus(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, worker.ErrQueueFull):
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, worker.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
