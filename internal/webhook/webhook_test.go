package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/odoo-probe/internal/model"
)

var fastRetry = RetryConfig{MaxAttempts: 3, InitialDelayMs: 1, MaxDelayMs: 5, Multiplier: 2}

func failingExecution() *model.ProbeExecution {
	return &model.ProbeExecution{
		CorrelationID: "corr-1",
		TargetURL:     "http://odoo:8069",
		Result:        model.ResultUnhealthy,
		StatusCode:    503,
		ErrorKind:     "server_error",
		Error:         "server error: status 503",
	}
}

func TestRetryStrategyDelay(t *testing.T) {
	rs := NewRetryStrategy(RetryConfig{})

	assert.Equal(t, time.Duration(0), rs.CalculateDelay(0))
	assert.Equal(t, time.Second, rs.CalculateDelay(1))
	assert.Equal(t, 2*time.Second, rs.CalculateDelay(2))
	assert.Equal(t, 4*time.Second, rs.CalculateDelay(3))
	assert.Equal(t, 30*time.Second, rs.CalculateDelay(10))
	assert.Equal(t, 3, rs.MaxAttempts())
}

func TestRetryStrategyShouldRetry(t *testing.T) {
	rs := NewRetryStrategy(RetryConfig{MaxAttempts: 3})
	netErr := errors.New("dial tcp: connection refused")

	assert.True(t, rs.ShouldRetry(1, 0, netErr))
	assert.True(t, rs.ShouldRetry(1, http.StatusBadGateway, netErr))
	assert.True(t, rs.ShouldRetry(1, http.StatusTooManyRequests, netErr))
	assert.False(t, rs.ShouldRetry(1, http.StatusBadRequest, netErr))
	assert.True(t, rs.ShouldRetry(1, http.StatusFound, netErr))
	assert.False(t, rs.ShouldRetry(3, http.StatusBadGateway, netErr))
}

func TestCircuitBreakerTransitions(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(2, 1, time.Minute)
	cb.now = func() time.Time { return now }

	assert.True(t, cb.CanAttempt())
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.CanAttempt())

	now = now.Add(time.Minute)
	assert.True(t, cb.CanAttempt())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(time.Minute)
	require.True(t, cb.CanAttempt())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

func TestSendAlertDelivered(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDispatcher(Target{URL: server.URL, Headers: map[string]string{"X-Token": "secret"}, Retry: fastRetry}, time.Second)
	alertLog, err := d.SendAlert(context.Background(), FormatFailurePayload(failingExecution(), 3), "corr-1")

	require.NoError(t, err)
	assert.Equal(t, "delivered", alertLog.FinalStatus)
	assert.Equal(t, model.AlertKindFailure, alertLog.Kind)
	require.Len(t, alertLog.Attempts, 1)
	assert.Equal(t, 1, alertLog.Attempts[0].AttemptNumber)

	assert.Contains(t, received["text"], "3 consecutive failures")
	metadata := received["metadata"].(map[string]interface{})
	assert.Equal(t, "odoo-probe", metadata["service"])
	assert.NotEmpty(t, metadata["timestamp"])
	details := received["details"].(map[string]interface{})
	assert.Equal(t, "server_error", details["error_kind"])
}

func TestSendAlertRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(Target{URL: server.URL, Retry: fastRetry}, time.Second)
	alertLog, err := d.SendAlert(context.Background(), FormatFailurePayload(failingExecution(), 3), "corr-1")

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Len(t, alertLog.Attempts, 3)
	assert.Equal(t, http.StatusBadGateway, alertLog.Attempts[0].StatusCode)
	assert.Equal(t, 3, alertLog.Attempts[2].AttemptNumber)
}

func TestSendAlertStopsOnClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	d := NewDispatcher(Target{URL: server.URL, Retry: fastRetry}, time.Second)
	alertLog, err := d.SendAlert(context.Background(), FormatResolvedPayload(failingExecution(), 3), "corr-1")

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "failed", alertLog.FinalStatus)
	assert.Equal(t, model.AlertKindResolved, alertLog.Kind)
}

func TestSendAlertCircuitOpen(t *testing.T) {
	d := NewDispatcher(Target{URL: "http://127.0.0.1:1", Retry: RetryConfig{MaxAttempts: 1}}, 100*time.Millisecond)
	d.circuitBreaker = NewCircuitBreaker(1, 1, time.Hour)

	_, err := d.SendAlert(context.Background(), FormatFailurePayload(failingExecution(), 1), "corr-1")
	require.Error(t, err)
	assert.Equal(t, StateOpen, d.CircuitState())

	alertLog, err := d.SendAlert(context.Background(), FormatFailurePayload(failingExecution(), 2), "corr-2")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Empty(t, alertLog.Attempts)
	assert.Equal(t, "failed", alertLog.FinalStatus)
}
