package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dandantas/odoo-probe/internal/model"
)

// ReadinessSource exposes the outcome of the latest probe run
type ReadinessSource interface {
	Ready() bool
	LastExecution() (model.ProbeExecution, bool)
	ConsecutiveFailures() int
}

// Pinger checks a backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the watcher's own health and the Odoo readiness view
type HealthHandler struct {
	monitor   ReadinessSource
	db        Pinger
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler. db may be nil when history
// is disabled.
func NewHealthHandler(monitor ReadinessSource, db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		monitor:   monitor,
		db:        db,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Timestamp     string `json:"timestamp"`
	MongoDB       string `json:"mongodb"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Ready               bool              `json:"ready"`
	Result              model.ProbeResult `json:"result,omitempty"`
	LastRunAt           string            `json:"last_run_at,omitempty"`
	CorrelationID       string            `json:"correlation_id,omitempty"`
	ErrorKind           string            `json:"error_kind,omitempty"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
}

// Health returns the watcher's own liveness
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	mongoStatus := "disabled"
	if h.db != nil {
		mongoStatus = "connected"
		if err := h.db.Ping(r.Context()); err != nil {
			mongoStatus = "disconnected"
		}
	}

	response := HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		MongoDB:       mongoStatus,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	writeJSON(w, http.StatusOK, response)
}

// Ready answers 200 only when the latest probe run was healthy
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	response := ReadyResponse{
		Ready:               h.monitor.Ready(),
		ConsecutiveFailures: h.monitor.ConsecutiveFailures(),
	}

	if last, ok := h.monitor.LastExecution(); ok {
		response.Result = last.Result
		response.LastRunAt = last.ExecutedAt.Format(time.RFC3339)
		response.CorrelationID = last.CorrelationID
		response.ErrorKind = last.ErrorKind
	}

	statusCode := http.StatusOK
	if !response.Ready {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, response)
}
