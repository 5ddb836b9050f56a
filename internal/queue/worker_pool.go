package queue

import (
	"context"
	"log/slog"
	"sync"
)

// WorkerPool manages a pool of worker goroutines that execute jobs from a
// queue. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	reader      Reader
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	// errorHandler is called when a job execution fails.
	// If nil, errors are only logged.
	errorHandler func(job Job, err error)
}

// NewWorkerPool creates a new worker pool consuming from reader.
// A non-positive workerCount defaults to 1.
func NewWorkerPool(reader Reader, workerCount int) *WorkerPool {
	if workerCount <= 0 {
		slog.Warn("invalid worker count specified, using default",
			"specified_count", workerCount,
			"default_count", 1,
		)
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		reader:      reader,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetErrorHandler sets a custom handler for job execution failures.
func (p *WorkerPool) SetErrorHandler(handler func(job Job, err error)) {
	p.errorHandler = handler
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	slog.Info("worker pool started", "worker_count", p.workerCount)
}

// Stop signals all workers to finish and waits for them to exit. Jobs
// already picked up run to completion; jobs still buffered are drained
// until the queue channel is closed.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	slog.Info("worker pool stopped")
}

// Drain waits for the workers to exit without cancelling them. The caller
// must close the queue first or Drain blocks forever.
func (p *WorkerPool) Drain() {
	p.wg.Wait()
	slog.Info("worker pool drained")
}

// worker consumes jobs until the queue channel closes or the pool is
// cancelled.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.reader.GetChannel():
			if !ok {
				return
			}
			p.run(id, job)
		}
	}
}

// run executes a single job, routing failures to the error handler.
func (p *WorkerPool) run(workerID int, job Job) {
	slog.Debug("job started",
		"worker_id", workerID,
		"job_id", job.ID(),
		"job_type", job.Type(),
	)

	if err := job.Execute(p.ctx); err != nil {
		slog.Error("job execution failed",
			"worker_id", workerID,
			"job_id", job.ID(),
			"job_type", job.Type(),
			"error", err,
		)
		if p.errorHandler != nil {
			p.errorHandler(job, err)
		}
		return
	}

	slog.Debug("job completed",
		"worker_id", workerID,
		"job_id", job.ID(),
		"job_type", job.Type(),
	)
}
