package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProbeResult is the outcome derived from a probe response
type ProbeResult string

const (
	ResultHealthy     ProbeResult = "healthy"
	ResultUnhealthy   ProbeResult = "unhealthy"
	ResultNeedsReinit ProbeResult = "needs_reinit"
)

// ProbeState is a step of the liveness state machine
type ProbeState string

const (
	StateStart       ProbeState = "start"
	StateProbeLogin  ProbeState = "probe_login"
	StateInitSession ProbeState = "init_session"
	StateDone        ProbeState = "done"
)

// Probe triggers
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// ProbeExecution is a recorded probe run
type ProbeExecution struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CorrelationID string             `json:"correlation_id" bson:"correlation_id"`
	Trigger       string             `json:"trigger" bson:"trigger"`
	TargetURL     string             `json:"target_url" bson:"target_url"`
	ExecutedAt    time.Time          `json:"executed_at" bson:"executed_at"`
	DurationMs    int64              `json:"duration_ms" bson:"duration_ms"`
	Result        ProbeResult        `json:"result" bson:"result"`
	StatusCode    int                `json:"status_code,omitempty" bson:"status_code,omitempty"`
	States        []ProbeState       `json:"states" bson:"states"`
	TokenRotated  bool               `json:"token_rotated" bson:"token_rotated"`
	RestoreLocked bool               `json:"restore_locked" bson:"restore_locked"`
	ErrorKind     string             `json:"error_kind,omitempty" bson:"error_kind,omitempty"`
	Error         string             `json:"error,omitempty" bson:"error,omitempty"`
}

// Healthy reports whether the execution ended healthy
func (pe *ProbeExecution) Healthy() bool {
	return pe.Result == ResultHealthy
}

// ProbeSummary is the list representation of a probe execution
type ProbeSummary struct {
	CorrelationID string      `json:"correlation_id"`
	Trigger       string      `json:"trigger"`
	ExecutedAt    string      `json:"executed_at"`
	DurationMs    int64       `json:"duration_ms"`
	Result        ProbeResult `json:"result"`
	StatusCode    int         `json:"status_code,omitempty"`
	ErrorKind     string      `json:"error_kind,omitempty"`
}

// ToSummary converts ProbeExecution to ProbeSummary
func (pe *ProbeExecution) ToSummary() ProbeSummary {
	var executedAt string
	if !pe.ExecutedAt.IsZero() {
		executedAt = pe.ExecutedAt.Format(time.RFC3339)
	}

	return ProbeSummary{
		CorrelationID: pe.CorrelationID,
		Trigger:       pe.Trigger,
		ExecutedAt:    executedAt,
		DurationMs:    pe.DurationMs,
		Result:        pe.Result,
		StatusCode:    pe.StatusCode,
		ErrorKind:     pe.ErrorKind,
	}
}
