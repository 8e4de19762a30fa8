package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/odoo-probe/internal/model"
)

func TestObserveRun(t *testing.T) {
	m := New()

	m.ObserveRun(&model.ProbeExecution{
		Result:       model.ResultHealthy,
		ExecutedAt:   time.Unix(1700000000, 0),
		DurationMs:   120,
		TokenRotated: true,
	}, true, 0)
	m.ObserveRun(&model.ProbeExecution{
		Result:     model.ResultUnhealthy,
		ErrorKind:  "server_error",
		ExecutedAt: time.Unix(1700000030, 0),
		DurationMs: 40,
	}, false, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("healthy", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unhealthy", "server_error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastHealthy))
	assert.Equal(t, 1700000030.0, testutil.ToFloat64(m.lastRun))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rotations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reinits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.consecutive))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveAlert(model.AlertKindFailure, "delivered")
	m.ObserveQueueRejected()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `odoo_probe_alerts_total{kind="failure",status="delivered"} 1`)
	assert.Contains(t, body, "odoo_probe_queue_rejected_total 1")
	assert.Contains(t, body, "go_goroutines")
}
