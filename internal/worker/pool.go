package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/dandantas/odoo-probe/internal/model"
)

var (
	// ErrQueueFull is returned when a job cannot be queued without blocking
	ErrQueueFull = errors.New("worker queue is full")
	// ErrStopped is returned when the pool no longer accepts jobs
	ErrStopped = errors.New("worker pool is stopped")
)

// ExecutorFunc executes one probe run
type ExecutorFunc func(ctx context.Context, trigger, correlationID string) (*model.ProbeExecution, error)

// WorkerPool manages worker goroutines draining a bounded job queue.
// Watch mode runs a single worker so probe runs never overlap.
type WorkerPool struct {
	workers    int
	jobs       chan Job
	executorFn ExecutorFunc
	jobStore   *model.JobStatusStore
	onRejected func()

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers int, jobQueueSize int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if jobQueueSize <= 0 {
		jobQueueSize = 1
	}

	return &WorkerPool{
		workers:  workers,
		jobs:     make(chan Job, jobQueueSize),
		jobStore: model.NewJobStatusStore(),
	}
}

// SetExecutor sets the executor function that will process jobs
func (wp *WorkerPool) SetExecutor(fn ExecutorFunc) {
	wp.executorFn = fn
}

// OnRejected registers a callback invoked whenever the queue is full
func (wp *WorkerPool) OnRejected(fn func()) {
	wp.onRejected = fn
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	slog.Info("Starting worker pool", "workers", wp.workers, "queue_size", cap(wp.jobs))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop stops accepting jobs and waits for queued jobs to finish
func (wp *WorkerPool) Stop() {
	slog.Info("Stopping worker pool")

	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobs)
	wp.mu.Unlock()

	wp.wg.Wait()

	slog.Info("Worker pool stopped")
}

// Submit queues a job without blocking
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrStopped
	}

	select {
	case wp.jobs <- job:
		slog.Debug("Job submitted to worker pool",
			"job_id", job.ID,
			"trigger", job.Trigger,
			"correlation_id", job.CorrelationID,
			"async", job.Async,
		)
		return nil
	default:
		slog.Warn("Worker queue is full, dropping probe run",
			"trigger", job.Trigger,
			"correlation_id", job.CorrelationID,
			"queue_size", cap(wp.jobs),
		)
		if wp.onRejected != nil {
			wp.onRejected()
		}
		return ErrQueueFull
	}
}

// Run queues a probe run and waits for its outcome
func (wp *WorkerPool) Run(ctx context.Context, trigger, correlationID string) (*model.ProbeExecution, error) {
	reply := make(chan Result, 1)
	job := Job{
		ID:            uuid.New().String(),
		Trigger:       trigger,
		CorrelationID: correlationID,
		Context:       ctx,
		reply:         reply,
	}

	if err := wp.Submit(job); err != nil {
		return nil, err
	}

	select {
	case result := <-reply:
		return result.Execution, result.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SubmitAsync queues a probe run and returns its job status immediately.
// Job IDs are ULIDs so they sort by submission time.
func (wp *WorkerPool) SubmitAsync(trigger, correlationID string) (model.JobStatus, error) {
	status := model.JobStatus{
		JobID:         ulid.Make().String(),
		Status:        model.JobQueued,
		CorrelationID: correlationID,
	}
	wp.jobStore.Set(status.JobID, status)

	job := Job{
		ID:            status.JobID,
		Trigger:       trigger,
		CorrelationID: correlationID,
		Context:       context.Background(),
		Async:         true,
	}

	if err := wp.Submit(job); err != nil {
		wp.jobStore.Delete(status.JobID)
		return model.JobStatus{}, err
	}

	return status, nil
}

// JobStatus retrieves the status of an async job
func (wp *WorkerPool) JobStatus(jobID string) (model.JobStatus, bool) {
	return wp.jobStore.Get(jobID)
}

// QueueLength returns the current number of jobs in the queue
func (wp *WorkerPool) QueueLength() int {
	return len(wp.jobs)
}

// worker is the worker goroutine that processes jobs
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	slog.Debug("Worker started", "worker_id", id)

	for job := range wp.jobs {
		wp.process(id, job)
	}

	slog.Debug("Worker stopped", "worker_id", id)
}

func (wp *WorkerPool) process(id int, job Job) {
	slog.Debug("Worker processing job",
		"worker_id", id,
		"job_id", job.ID,
		"correlation_id", job.CorrelationID,
	)

	ctx := job.Context
	if ctx == nil {
		ctx = context.Background()
	}

	if ctx.Err() != nil {
		// the sync caller already gave up
		wp.finish(job, Result{JobID: job.ID, Error: ctx.Err()})
		return
	}

	if job.Async {
		wp.jobStore.Set(job.ID, model.JobStatus{
			JobID:         job.ID,
			Status:        model.JobProcessing,
			CorrelationID: job.CorrelationID,
		})
	}

	execution, err := wp.executorFn(ctx, job.Trigger, job.CorrelationID)
	wp.finish(job, Result{Execution: execution, Error: err, JobID: job.ID})
}

func (wp *WorkerPool) finish(job Job, result Result) {
	if !job.Async {
		if job.reply != nil {
			job.reply <- result
		}
		return
	}

	status := model.JobStatus{
		JobID:         job.ID,
		Status:        model.JobCompleted,
		CorrelationID: job.CorrelationID,
		Result:        result.Execution,
	}
	if result.Error != nil {
		status.Status = model.JobFailed
		status.Error = result.Error.Error()
	}
	wp.jobStore.Set(job.ID, status)

	slog.Info("Async probe run completed",
		"job_id", job.ID,
		"correlation_id", job.CorrelationID,
		"status", status.Status,
	)
}
