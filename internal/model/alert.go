package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Alert kinds
const (
	AlertKindFailure  = "failure"
	AlertKindResolved = "resolved"
)

// Acknowledgment states. Resolved alerts close a failure streak and have
// nothing left for an operator to acknowledge.
const (
	AckStatusOpen         = "open"
	AckStatusAcknowledged = "acknowledged"
	AckStatusNotRequired  = "not_required"
)

// InitialAckStatus is the acknowledgment state a new alert of kind starts in
func InitialAckStatus(kind string) string {
	if kind == AlertKindResolved {
		return AckStatusNotRequired
	}
	return AckStatusOpen
}

// AlertAttempt represents a single webhook delivery attempt
type AlertAttempt struct {
	AttemptNumber int       `json:"attempt_number" bson:"attempt_number"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
	StatusCode    int       `json:"status_code,omitempty" bson:"status_code,omitempty"`
	ResponseBody  string    `json:"response_body,omitempty" bson:"response_body,omitempty"`
	Error         string    `json:"error,omitempty" bson:"error,omitempty"`
	DurationMs    int64     `json:"duration_ms" bson:"duration_ms"`
}

// AlertPayload represents the payload sent to webhook
type AlertPayload struct {
	Text string `json:"text" bson:"text"`
}

// AlertLog represents an alert log document
type AlertLog struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CorrelationID        string             `json:"correlation_id" bson:"correlation_id"`
	Kind                 string             `json:"kind" bson:"kind"` // "failure", "resolved"
	TargetURL            string             `json:"target_url" bson:"target_url"`
	ConsecutiveFailures  int                `json:"consecutive_failures" bson:"consecutive_failures"`
	WebhookURL           string             `json:"webhook_url" bson:"webhook_url"`
	Payload              AlertPayload       `json:"payload" bson:"payload"`
	Attempts             []AlertAttempt     `json:"attempts" bson:"attempts"`
	FinalStatus          string             `json:"final_status" bson:"final_status"`                   // "delivered", "failed", "retrying"
	AcknowledgmentStatus string             `json:"acknowledgment_status" bson:"acknowledgment_status"` // "open", "acknowledged", "not_required"
	AcknowledgedBy       string             `json:"acknowledged_by,omitempty" bson:"acknowledged_by,omitempty"`
	AcknowledgedAt       time.Time          `json:"acknowledged_at,omitempty" bson:"acknowledged_at,omitempty"`
	CreatedAt            time.Time          `json:"created_at" bson:"created_at"`
	CompletedAt          time.Time          `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// AlertLogSummary represents a summary for list responses
type AlertLogSummary struct {
	ID                   string `json:"id"`
	CorrelationID        string `json:"correlation_id"`
	Kind                 string `json:"kind"`
	ConsecutiveFailures  int    `json:"consecutive_failures"`
	FinalStatus          string `json:"final_status"`
	AcknowledgmentStatus string `json:"acknowledgment_status"`
	AcknowledgedBy       string `json:"acknowledged_by,omitempty"`
	AcknowledgedAt       string `json:"acknowledged_at,omitempty"`
	AttemptsCount        int    `json:"attempts_count"`
	CreatedAt            string `json:"created_at"`
}

// ToSummary converts AlertLog to AlertLogSummary
func (al *AlertLog) ToSummary() AlertLogSummary {
	ackStatus := al.AcknowledgmentStatus
	if ackStatus == "" {
		ackStatus = InitialAckStatus(al.Kind)
	}

	var acknowledgedAt, createdAt string
	if !al.AcknowledgedAt.IsZero() {
		acknowledgedAt = al.AcknowledgedAt.Format(time.RFC3339)
	}
	if !al.CreatedAt.IsZero() {
		createdAt = al.CreatedAt.Format(time.RFC3339)
	}

	return AlertLogSummary{
		ID:                   al.ID.Hex(),
		CorrelationID:        al.CorrelationID,
		Kind:                 al.Kind,
		ConsecutiveFailures:  al.ConsecutiveFailures,
		FinalStatus:          al.FinalStatus,
		AcknowledgmentStatus: ackStatus,
		AcknowledgedBy:       al.AcknowledgedBy,
		AcknowledgedAt:       acknowledgedAt,
		AttemptsCount:        len(al.Attempts),
		CreatedAt:            createdAt,
	}
}
