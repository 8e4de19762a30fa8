package webhook

import (
	"fmt"

	"github.com/dandantas/odoo-probe/internal/model"
)

// AlertPayloadData is the JSON body posted to the webhook
type AlertPayloadData struct {
	Kind     string                 `json:"-"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
	Details  map[string]interface{} `json:"details"`
}

// FormatFailurePayload describes a streak of unhealthy probe runs
func FormatFailurePayload(execution *model.ProbeExecution, consecutiveFailures int) AlertPayloadData {
	reason := execution.Error
	if reason == "" {
		reason = string(execution.Result)
	}

	return AlertPayloadData{
		Kind: model.AlertKindFailure,
		Text: fmt.Sprintf("🚨 Odoo liveness probe failing: %s (%d consecutive failures): %s",
			execution.TargetURL, consecutiveFailures, reason),
		Metadata: newMetadata(execution, "critical"),
		Details: map[string]interface{}{
			"target_url":           execution.TargetURL,
			"status_code":          execution.StatusCode,
			"error_kind":           execution.ErrorKind,
			"error":                execution.Error,
			"consecutive_failures": consecutiveFailures,
			"duration_ms":          execution.DurationMs,
		},
	}
}

// FormatResolvedPayload describes the first healthy run after an alerted streak
func FormatResolvedPayload(execution *model.ProbeExecution, failuresBefore int) AlertPayloadData {
	return AlertPayloadData{
		Kind: model.AlertKindResolved,
		Text: fmt.Sprintf("✅ Odoo liveness probe recovered: %s (after %d consecutive failures)",
			execution.TargetURL, failuresBefore),
		Metadata: newMetadata(execution, "info"),
		Details: map[string]interface{}{
			"target_url":           execution.TargetURL,
			"status_code":          execution.StatusCode,
			"consecutive_failures": failuresBefore,
			"duration_ms":          execution.DurationMs,
		},
	}
}

func newMetadata(execution *model.ProbeExecution, severity string) map[string]interface{} {
	return map[string]interface{}{
		"service":        "odoo-probe",
		"correlation_id": execution.CorrelationID,
		"timestamp":      "", // set by the dispatcher
		"severity":       severity,
	}
}
