package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskdesk/taskdesk/internal/queue"
)

// testJob is a controllable job for queue and worker pool tests.
type testJob struct {
	id      uuid.UUID
	jobType string
	err     error
	run     func()
}

func newTestJob(jobType string, err error, run func()) *testJob {
	return &testJob{id: uuid.New(), jobType: jobType, err: err, run: run}
}

func (j *testJob) ID() uuid.UUID { return j.id }
func (j *testJob) Type() string  { return j.jobType }
func (j *testJob) Execute(ctx context.Context) error {
	if j.run != nil {
		j.run()
	}
	return j.err
}

func TestQueue_EnqueueAndConsume(t *testing.T) {
	q := queue.New(2)

	job := newTestJob("test", nil, nil)
	require.NoError(t, q.Enqueue(job))

	got := <-q.GetChannel()
	assert.Equal(t, job.ID(), got.ID())
}

func TestQueue_Full(t *testing.T) {
	q := queue.New(1)

	require.NoError(t, q.Enqueue(newTestJob("test", nil, nil)))

	err := q.Enqueue(newTestJob("test", nil, nil))
	assert.ErrorIs(t, err, queue.ErrQueueFull)
}

func TestQueue_Closed(t *testing.T) {
	q := queue.New(1)
	q.Close()

	err := q.Enqueue(newTestJob("test", nil, nil))
	assert.ErrorIs(t, err, queue.ErrQueueClosed)
}

func TestQueue_CloseIsIdempotent(t *testing.T) {
	q := queue.New(1)
	q.Close()
	q.Close()
}

func TestWorkerPool_ExecutesJobs(t *testing.T) {
	q := queue.New(10)
	pool := queue.NewWorkerPool(q, 2)

	var executed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.NoError(t, q.Enqueue(newTestJob("test", nil, func() {
			executed.Add(1)
			wg.Done()
		})))
	}

	pool.Start()
	wg.Wait()
	pool.Stop()

	assert.Equal(t, int32(5), executed.Load())
}

func TestWorkerPool_ErrorHandler(t *testing.T) {
	q := queue.New(10)
	pool := queue.NewWorkerPool(q, 1)

	jobErr := errors.New("boom")
	failing := newTestJob("failing", jobErr, nil)

	handled := make(chan error, 1)
	pool.SetErrorHandler(func(job queue.Job, err error) {
		assert.Equal(t, failing.ID(), job.ID())
		handled <- err
	})

	require.NoError(t, q.Enqueue(failing))
	pool.Start()
	defer pool.Stop()

	select {
	case err := <-handled:
		assert.ErrorIs(t, err, jobErr)
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not called")
	}
}

func TestWorkerPool_DrainProcessesBufferedJobs(t *testing.T) {
	q := queue.New(10)
	pool := queue.NewWorkerPool(q, 1)

	var executed atomic.Int32
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(newTestJob("test", nil, func() {
			executed.Add(1)
		})))
	}

	pool.Start()
	q.Close()
	pool.Drain()

	assert.Equal(t, int32(3), executed.Load())
}
