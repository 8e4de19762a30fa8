package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dandantas/odoo-probe/internal/model"
)

// ErrCircuitOpen is returned when delivery is skipped by the circuit breaker
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Target is the webhook endpoint alerts are delivered to
type Target struct {
	URL     string
	Method  string
	Headers map[string]string
	Retry   RetryConfig
}

// Dispatcher handles webhook delivery with retry logic
type Dispatcher struct {
	httpClient     *http.Client
	target         Target
	circuitBreaker *CircuitBreaker
}

// NewDispatcher creates a new webhook dispatcher
func NewDispatcher(target Target, timeout time.Duration) *Dispatcher {
	if target.Method == "" {
		target.Method = http.MethodPost
	}
	target.Method = strings.ToUpper(target.Method)
	target.Retry.SetDefaults()

	return &Dispatcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		target:         target,
		circuitBreaker: NewCircuitBreaker(0, 0, 0),
	}
}

// SendAlert delivers payload with retries and returns the delivery log.
// The log is returned even when delivery fails.
func (d *Dispatcher) SendAlert(
	ctx context.Context,
	payload AlertPayloadData,
	correlationID string,
) (*model.AlertLog, error) {
	if payload.Metadata == nil {
		payload.Metadata = make(map[string]interface{})
	}
	payload.Metadata["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	alertLog := &model.AlertLog{
		ID:                   primitive.NewObjectID(),
		CorrelationID:        correlationID,
		Kind:                 payload.Kind,
		WebhookURL:           d.target.URL,
		Payload:              model.AlertPayload{Text: payload.Text},
		Attempts:             make([]model.AlertAttempt, 0),
		FinalStatus:          "retrying",
		AcknowledgmentStatus: model.InitialAckStatus(payload.Kind),
		CreatedAt:            time.Now().UTC(),
	}

	if !d.circuitBreaker.CanAttempt() {
		slog.Warn("Circuit breaker is open, skipping webhook delivery",
			"correlation_id", correlationID,
			"webhook_url", d.target.URL,
			"circuit_state", d.circuitBreaker.State().String(),
		)
		return d.finish(alertLog, "failed"), ErrCircuitOpen
	}

	body, err := sonic.ConfigStd.Marshal(payload)
	if err != nil {
		return d.finish(alertLog, "failed"), fmt.Errorf("failed to marshal payload: %w", err)
	}

	retryStrategy := NewRetryStrategy(d.target.Retry)

	for attempt := 1; attempt <= retryStrategy.MaxAttempts(); attempt++ {
		slog.Info("Attempting webhook delivery",
			"correlation_id", correlationID,
			"webhook_url", d.target.URL,
			"attempt", attempt,
			"max_attempts", retryStrategy.MaxAttempts(),
		)

		result, err := d.deliver(ctx, body)
		result.AttemptNumber = attempt
		alertLog.Attempts = append(alertLog.Attempts, result)

		if err == nil {
			slog.Info("Webhook delivered successfully",
				"correlation_id", correlationID,
				"attempt", attempt,
				"status_code", result.StatusCode,
			)
			d.circuitBreaker.RecordSuccess()
			return d.finish(alertLog, "delivered"), nil
		}

		if !retryStrategy.ShouldRetry(attempt, result.StatusCode, err) {
			break
		}

		delay := retryStrategy.CalculateDelay(attempt)
		slog.Warn("Webhook delivery failed, retrying",
			"correlation_id", correlationID,
			"attempt", attempt,
			"next_retry_ms", delay.Milliseconds(),
			"error", result.Error,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			d.circuitBreaker.RecordFailure()
			return d.finish(alertLog, "failed"), ctx.Err()
		}
	}

	slog.Error("Webhook delivery failed",
		"correlation_id", correlationID,
		"webhook_url", d.target.URL,
		"attempts", len(alertLog.Attempts),
	)

	d.circuitBreaker.RecordFailure()
	return d.finish(alertLog, "failed"), fmt.Errorf("webhook delivery failed after %d attempts", len(alertLog.Attempts))
}

// CircuitState returns the current circuit breaker state
func (d *Dispatcher) CircuitState() CircuitState {
	return d.circuitBreaker.State()
}

func (d *Dispatcher) finish(alertLog *model.AlertLog, status string) *model.AlertLog {
	alertLog.FinalStatus = status
	alertLog.CompletedAt = time.Now().UTC()
	return alertLog
}

// deliver performs a single webhook delivery attempt
func (d *Dispatcher) deliver(ctx context.Context, body []byte) (model.AlertAttempt, error) {
	start := time.Now()
	attempt := model.AlertAttempt{
		Timestamp: start.UTC(),
	}

	fail := func(err error) (model.AlertAttempt, error) {
		attempt.Error = err.Error()
		attempt.DurationMs = time.Since(start).Milliseconds()
		return attempt, err
	}

	req, err := http.NewRequestWithContext(ctx, d.target.Method, d.target.URL, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range d.target.Headers {
		req.Header.Set(key, value)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	// 1KB is enough to keep the webhook's error message
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		slog.Warn("Failed to read webhook response body", "error", err)
	}

	attempt.StatusCode = resp.StatusCode
	attempt.ResponseBody = string(respBody)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}

	attempt.DurationMs = time.Since(start).Milliseconds()
	return attempt, nil
}
