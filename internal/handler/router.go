package handler

import (
	"net/http"
	"strings"

	"github.com/dandantas/odoo-probe/pkg/middleware"
)

// Router handles HTTP routing
type Router struct {
	healthHandler  *HealthHandler
	probeHandler   *ProbeHandler
	historyHandler *HistoryHandler
	alertHandler   *AlertHandler
	metrics        http.Handler
	corsConfig     middleware.CORSConfig
}

// NewRouter creates a new router
func NewRouter(
	healthHandler *HealthHandler,
	probeHandler *ProbeHandler,
	historyHandler *HistoryHandler,
	alertHandler *AlertHandler,
	metrics http.Handler,
	corsConfig middleware.CORSConfig,
) *Router {
	return &Router{
		healthHandler:  healthHandler,
		probeHandler:   probeHandler,
		historyHandler: historyHandler,
		alertHandler:   alertHandler,
		metrics:        metrics,
		corsConfig:     corsConfig,
	}
}

// Handler returns the configured HTTP handler with middleware
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", rt.healthHandler.Health)
	mux.HandleFunc("/ready", rt.healthHandler.Ready)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics)
	}

	mux.HandleFunc("/api/v1/probes", rt.historyHandler.List)
	mux.HandleFunc("/api/v1/probes/", rt.handleProbesWithID)
	mux.HandleFunc("/api/v1/alerts", rt.alertHandler.List)
	mux.HandleFunc("/api/v1/alerts/", rt.handleAlertsWithID)

	// Apply middleware (CORS first to handle preflight requests)
	handler := middleware.CORS(rt.corsConfig)(mux)
	handler = middleware.Recovery(handler)
	handler = middleware.Logging(handler)
	handler = middleware.CorrelationID(handler)

	return handler
}

// handleProbesWithID routes the run, job and single-execution endpoints
func (rt *Router) handleProbesWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/probes/")

	switch {
	case path == "run":
		rt.probeHandler.Run(w, r)
	case strings.HasPrefix(path, "jobs/"):
		rt.probeHandler.Job(w, r)
	default:
		rt.historyHandler.Get(w, r)
	}
}

// handleAlertsWithID routes alert individual endpoints
func (rt *Router) handleAlertsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")

	if strings.HasSuffix(path, "/acknowledge") {
		if r.Method != http.MethodPatch {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rt.alertHandler.Acknowledge(w, r)
		return
	}

	writeError(w, http.StatusNotFound, "Endpoint not found")
}
