package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dandantas/odoo-probe/internal/model"
	"github.com/dandantas/odoo-probe/internal/prober"
	"github.com/dandantas/odoo-probe/internal/webhook"
)

// Prober runs one liveness check against Odoo
type Prober interface {
	CheckHealth(ctx context.Context) prober.Report
	BaseURL() string
}

// HistoryRecorder persists finished probe runs
type HistoryRecorder interface {
	Record(ctx context.Context, execution *model.ProbeExecution) error
}

// AlertRecorder persists alert delivery logs
type AlertRecorder interface {
	RecordAlert(ctx context.Context, alert *model.AlertLog) error
}

// Alerter delivers alert payloads to a webhook
type Alerter interface {
	SendAlert(ctx context.Context, payload webhook.AlertPayloadData, correlationID string) (*model.AlertLog, error)
}

// RunObserver receives run and alert outcomes, typically metrics
type RunObserver interface {
	ObserveRun(execution *model.ProbeExecution, reinitialized bool, consecutiveFailures int)
	ObserveAlert(kind, finalStatus string)
}

// MonitorOptions holds the optional collaborators of a Monitor.
// Nil fields disable the matching feature.
type MonitorOptions struct {
	History          HistoryRecorder
	Alerter          Alerter
	Alerts           AlertRecorder
	Observer         RunObserver
	FailureThreshold int
}

// Monitor runs probes and tracks the failure streak across runs
type Monitor struct {
	prober    Prober
	history   HistoryRecorder
	alerter   Alerter
	alerts    AlertRecorder
	observer  RunObserver
	threshold int

	mu                  sync.RWMutex
	last                *model.ProbeExecution
	consecutiveFailures int
	alerted             bool
}

// NewMonitor creates a new monitor
func NewMonitor(p Prober, opts MonitorOptions) *Monitor {
	if opts.FailureThreshold < 1 {
		opts.FailureThreshold = 1
	}

	return &Monitor{
		prober:    p,
		history:   opts.History,
		alerter:   opts.Alerter,
		alerts:    opts.Alerts,
		observer:  opts.Observer,
		threshold: opts.FailureThreshold,
	}
}

// alertAction is decided under the lock and performed after it is released
type alertAction struct {
	kind     string
	failures int
}

// Run executes one probe, records it and sends streak alerts
func (m *Monitor) Run(ctx context.Context, trigger, correlationID string) (*model.ProbeExecution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	slog.Info("Starting probe run",
		"correlation_id", correlationID,
		"trigger", trigger,
		"target_url", m.prober.BaseURL(),
	)

	start := time.Now()
	report := m.prober.CheckHealth(ctx)

	execution := &model.ProbeExecution{
		CorrelationID: correlationID,
		Trigger:       trigger,
		TargetURL:     m.prober.BaseURL(),
		ExecutedAt:    start.UTC(),
		DurationMs:    time.Since(start).Milliseconds(),
		Result:        report.Result,
		StatusCode:    report.StatusCode,
		States:        report.States,
		TokenRotated:  report.TokenSaved,
		RestoreLocked: report.RestoreLocked,
	}
	if report.Err != nil {
		execution.ErrorKind = string(prober.KindOf(report.Err))
		execution.Error = report.Err.Error()
	}

	action, failures := m.track(execution)

	if m.observer != nil {
		reinitialized := slices.Contains(report.States, model.StateInitSession)
		m.observer.ObserveRun(execution, reinitialized, failures)
	}

	// Recording and alerting outlive a cancelled request
	bgCtx := context.WithoutCancel(ctx)

	if m.history != nil {
		if err := m.history.Record(bgCtx, execution); err != nil {
			slog.Error("Failed to save probe execution",
				"correlation_id", correlationID,
				"error", err.Error(),
			)
		}
	}

	if action != nil {
		m.sendAlert(bgCtx, execution, *action)
	}

	slog.Info("Probe run completed",
		"correlation_id", correlationID,
		"result", execution.Result,
		"status_code", execution.StatusCode,
		"duration_ms", execution.DurationMs,
		"consecutive_failures", failures,
	)

	return execution, nil
}

// track updates the streak and decides whether an alert is due
func (m *Monitor) track(execution *model.ProbeExecution) (*alertAction, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// history.Record assigns execution.ID after this returns
	last := *execution
	m.last = &last

	if execution.Healthy() {
		failuresBefore := m.consecutiveFailures
		wasAlerted := m.alerted
		m.consecutiveFailures = 0
		m.alerted = false
		if wasAlerted && m.alerter != nil {
			return &alertAction{kind: model.AlertKindResolved, failures: failuresBefore}, 0
		}
		return nil, 0
	}

	m.consecutiveFailures++
	if m.consecutiveFailures >= m.threshold && !m.alerted && m.alerter != nil {
		m.alerted = true
		return &alertAction{kind: model.AlertKindFailure, failures: m.consecutiveFailures}, m.consecutiveFailures
	}
	return nil, m.consecutiveFailures
}

// sendAlert dispatches the webhook and stores the delivery log
func (m *Monitor) sendAlert(ctx context.Context, execution *model.ProbeExecution, action alertAction) {
	slog.Info("Triggering alert",
		"correlation_id", execution.CorrelationID,
		"kind", action.kind,
		"consecutive_failures", action.failures,
	)

	var payload webhook.AlertPayloadData
	if action.kind == model.AlertKindResolved {
		payload = webhook.FormatResolvedPayload(execution, action.failures)
	} else {
		payload = webhook.FormatFailurePayload(execution, action.failures)
	}

	alertLog, err := m.alerter.SendAlert(ctx, payload, execution.CorrelationID)
	if err != nil {
		slog.Error("Failed to send alert",
			"correlation_id", execution.CorrelationID,
			"kind", action.kind,
			"error", err.Error(),
		)
	}
	if alertLog == nil {
		return
	}

	alertLog.TargetURL = execution.TargetURL
	alertLog.ConsecutiveFailures = action.failures

	if m.observer != nil {
		m.observer.ObserveAlert(alertLog.Kind, alertLog.FinalStatus)
	}

	if m.alerts != nil {
		if saveErr := m.alerts.RecordAlert(ctx, alertLog); saveErr != nil {
			slog.Error("Failed to save alert log",
				"correlation_id", execution.CorrelationID,
				"error", saveErr.Error(),
			)
		}
	}
}

// LastExecution returns a copy of the most recent run
func (m *Monitor) LastExecution() (model.ProbeExecution, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.last == nil {
		return model.ProbeExecution{}, false
	}
	return *m.last, true
}

// Ready reports whether the most recent run was healthy
func (m *Monitor) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last != nil && m.last.Healthy()
}

// ConsecutiveFailures returns the current unhealthy streak
func (m *Monitor) ConsecutiveFailures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.consecutiveFailures
}
