package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/odoo-probe/internal/model"
	"github.com/dandantas/odoo-probe/internal/worker"
)

type ctxKey struct{}

type recordingSubmitter struct {
	mu   sync.Mutex
	jobs []worker.Job
	err  error
}

func (r *recordingSubmitter) Submit(job worker.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return r.err
}

func (r *recordingSubmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func TestNewSchedulerRejectsInvalidSchedule(t *testing.T) {
	_, err := NewScheduler("every thirty seconds", &recordingSubmitter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid watch schedule")
}

func TestNewSchedulerAcceptsCronAndDescriptors(t *testing.T) {
	for _, schedule := range []string{"*/5 * * * *", "@every 30s", "@hourly"} {
		_, err := NewScheduler(schedule, &recordingSubmitter{})
		assert.NoError(t, err, schedule)
	}
}

func TestStartQueuesImmediateRun(t *testing.T) {
	submitter := &recordingSubmitter{}
	s, err := NewScheduler("@every 1h", submitter)
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), ctxKey{}, "watch")
	s.Start(ctx)
	defer s.Stop(context.Background())

	require.Equal(t, 1, submitter.count())
	job := submitter.jobs[0]
	assert.Equal(t, model.TriggerSchedule, job.Trigger)
	assert.False(t, job.Async)
	assert.Equal(t, ctx, job.Context)
	_, err = uuid.Parse(job.CorrelationID)
	assert.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(time.Hour), s.NextRun(), 5*time.Second)
}

func TestScheduleKeepsTicking(t *testing.T) {
	submitter := &recordingSubmitter{}
	s, err := NewScheduler("@every 1s", submitter)
	require.NoError(t, err)

	s.Start(context.Background())
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return submitter.count() >= 2 }, 3*time.Second, 50*time.Millisecond)
}

func TestTickToleratesFullQueue(t *testing.T) {
	submitter := &recordingSubmitter{err: worker.ErrQueueFull}
	s, err := NewScheduler("@every 1h", submitter)
	require.NoError(t, err)

	s.tick()
	s.tick()

	assert.Equal(t, 2, submitter.count())
	assert.NotEqual(t, submitter.jobs[0].CorrelationID, submitter.jobs[1].CorrelationID)
}

func TestStopHonorsDeadline(t *testing.T) {
	s, err := NewScheduler("@every 1h", &recordingSubmitter{})
	require.NoError(t, err)
	s.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Stop(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
