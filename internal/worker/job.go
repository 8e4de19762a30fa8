package worker

import (
	"context"

	"github.com/dandantas/odoo-probe/internal/model"
)

// Job represents one probe run waiting in the queue
type Job struct {
	ID            string
	Trigger       string
	CorrelationID string
	Context       context.Context
	Async         bool // If true, the outcome goes to the job status store

	reply chan Result
}

// Result represents the outcome of a probe run
type Result struct {
	Execution *model.ProbeExecution
	Error     error
	JobID     string
}
