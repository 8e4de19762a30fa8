package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dandantas/odoo-probe/internal/model"
	"github.com/dandantas/odoo-probe/internal/worker"
)

// Submitter queues probe runs without blocking
type Submitter interface {
	Submit(job worker.Job) error
}

// Scheduler triggers probe runs on a cron schedule
type Scheduler struct {
	schedule  string
	submitter Submitter
	podID     string

	cron    *cron.Cron
	entryID cron.EntryID

	mu  sync.Mutex
	ctx context.Context
}

// NewScheduler creates a scheduler for a standard cron expression or a
// descriptor such as "@every 30s"
func NewScheduler(schedule string, submitter Submitter) (*Scheduler, error) {
	podID, err := os.Hostname()
	if err != nil {
		podID = uuid.New().String()
		slog.Warn("Failed to get hostname, using UUID as pod ID", "pod_id", podID)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s := &Scheduler{
		schedule:  schedule,
		submitter: submitter,
		podID:     podID,
		cron:      cron.New(cron.WithParser(parser)),
		ctx:       context.Background(),
	}

	entryID, err := s.cron.AddFunc(schedule, s.tick)
	if err != nil {
		return nil, fmt.Errorf("invalid watch schedule %q: %w", schedule, err)
	}
	s.entryID = entryID

	return s, nil
}

// Start runs one probe immediately and then follows the schedule.
// Jobs inherit ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	slog.Info("Starting scheduler", "pod_id", s.podID, "schedule", s.schedule)

	s.tick()
	s.cron.Start()

	slog.Info("Next scheduled probe", "next_run", s.NextRun().Format(time.RFC3339))
}

// Stop stops the cron loop and waits for a running tick or for ctx
func (s *Scheduler) Stop(ctx context.Context) {
	slog.Info("Stopping scheduler", "pod_id", s.podID)

	select {
	case <-s.cron.Stop().Done():
		slog.Info("Scheduler stopped", "pod_id", s.podID)
	case <-ctx.Done():
		slog.Warn("Timeout waiting for scheduler to stop", "pod_id", s.podID)
	}
}

// NextRun returns the next activation time, zero before Start
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// tick queues one scheduled probe run
func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	correlationID := uuid.New().String()

	err := s.submitter.Submit(worker.Job{
		ID:            uuid.New().String(),
		Trigger:       model.TriggerSchedule,
		CorrelationID: correlationID,
		Context:       ctx,
	})
	switch {
	case err == nil:
		slog.Debug("Scheduled probe queued", "pod_id", s.podID, "correlation_id", correlationID)
	case errors.Is(err, worker.ErrQueueFull):
		// the previous runs are still pending; skip this tick
	default:
		slog.Error("Failed to queue scheduled probe",
			"pod_id", s.podID,
			"correlation_id", correlationID,
			"error", err,
		)
	}
}
