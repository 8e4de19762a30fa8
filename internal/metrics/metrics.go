package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dandantas/odoo-probe/internal/model"
)

const namespace = "odoo_probe"

// Metrics holds the watch-mode collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	duration      prometheus.Histogram
	lastHealthy   prometheus.Gauge
	lastRun       prometheus.Gauge
	rotations     prometheus.Counter
	reinits       prometheus.Counter
	consecutive   prometheus.Gauge
	alerts        *prometheus.CounterVec
	queueRejected prometheus.Counter
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Probe runs by result and error kind.",
		}, []string{"result", "error_kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of probe runs.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		lastHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_result_healthy",
			Help:      "1 if the last probe run was healthy, 0 otherwise.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last probe run.",
		}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_token_writes_total",
			Help:      "Session token writes after rotation or re-initialization.",
		}),
		reinits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_reinitializations_total",
			Help:      "Runs that went through session initialization.",
		}),
		consecutive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consecutive_failures",
			Help:      "Current streak of unhealthy runs.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Webhook alerts by kind and final delivery status.",
		}, []string{"kind", "status"}),
		queueRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_rejected_total",
			Help:      "Probe runs dropped because the worker queue was full.",
		}),
	}

	m.registry.MustRegister(
		m.runs,
		m.duration,
		m.lastHealthy,
		m.lastRun,
		m.rotations,
		m.reinits,
		m.consecutive,
		m.alerts,
		m.queueRejected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records one finished probe run
func (m *Metrics) ObserveRun(execution *model.ProbeExecution, reinitialized bool, consecutiveFailures int) {
	m.runs.WithLabelValues(string(execution.Result), execution.ErrorKind).Inc()
	m.duration.Observe(float64(execution.DurationMs) / 1000)
	m.lastRun.Set(float64(execution.ExecutedAt.Unix()))
	m.consecutive.Set(float64(consecutiveFailures))

	if execution.Healthy() {
		m.lastHealthy.Set(1)
	} else {
		m.lastHealthy.Set(0)
	}
	if execution.TokenRotated {
		m.rotations.Inc()
	}
	if reinitialized {
		m.reinits.Inc()
	}
}

// ObserveAlert records one alert delivery outcome
func (m *Metrics) ObserveAlert(kind, finalStatus string) {
	m.alerts.WithLabelValues(kind, finalStatus).Inc()
}

// ObserveQueueRejected records a dropped probe run
func (m *Metrics) ObserveQueueRejected() {
	m.queueRejected.Inc()
}
