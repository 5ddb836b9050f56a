// Package queue provides the in-process deferred job queue and worker pool
// that decouple mail dispatch and error escalation from the request cycle.
// Delivery is at-least-once from the caller's perspective: jobs must
// tolerate re-execution and regenerate their output from current state.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Common errors returned by the Queue.
var (
	ErrQueueClosed = errors.New("job queue is closed")
	ErrQueueFull   = errors.New("job queue is full")
)

// Job is a unit of deferred work.
type Job interface {
	// ID returns the job's unique identifier.
	ID() uuid.UUID

	// Type returns the job type identifier.
	Type() string

	// Execute runs the job logic.
	Execute(ctx context.Context) error
}

// Reader provides read-only access to the job channel, allowing workers to
// consume jobs without the ability to enqueue.
type Reader interface {
	// GetChannel returns a read-only channel for consuming jobs.
	GetChannel() <-chan Job
}

// Writer provides write access to the queue, allowing services to enqueue
// jobs for processing.
type Writer interface {
	// Enqueue adds a job to the queue for processing.
	// Returns an error if the queue is full or closed.
	Enqueue(job Job) error

	// Close closes the queue, preventing further job submission.
	Close()
}

// Queue implements a buffered job queue that satisfies both Reader and
// Writer.
type Queue struct {
	mu     sync.Mutex
	jobs   chan Job
	closed bool
}

// New creates a new queue with the specified buffer size.
func New(size int) *Queue {
	return &Queue{
		jobs: make(chan Job, size),
	}
}

// Enqueue adds a job to the queue without blocking.
// Returns an error if the queue is full or closed.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		slog.Debug("job enqueued",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"queue_len", len(q.jobs),
			"queue_cap", cap(q.jobs),
		)
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.jobs))
	}
}

// Close closes the queue, preventing further job submission.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.jobs)
		slog.Info("job queue closed")
	}
}

// GetChannel returns a read-only channel for consuming jobs.
func (q *Queue) GetChannel() <-chan Job {
	return q.jobs
}
