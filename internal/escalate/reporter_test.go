package escalate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskdesk/taskdesk/internal/escalate"
	"github.com/taskdesk/taskdesk/internal/queue"
)

// recordingNotifier captures admin alert arguments.
type recordingNotifier struct {
	url, actor, kind, message, trace string
	calls                            int
}

func (n *recordingNotifier) SendAdminAlert(ctx context.Context, url, actor, kind, message, trace string) error {
	n.calls++
	n.url, n.actor, n.kind, n.message, n.trace = url, actor, kind, message, trace
	return nil
}

func TestReporter_EnqueuesAlertJob(t *testing.T) {
	notifier := &recordingNotifier{}
	jobs := queue.New(1)
	reporter := escalate.NewReporter(notifier, jobs)

	reporter.Report(escalate.Report{
		URL:     "/api/v1/tasks",
		Actor:   "alice",
		Kind:    "ValidationError",
		Message: "title is required",
		Trace:   "stack",
	})

	job := <-jobs.GetChannel()
	assert.Equal(t, escalate.JobTypeAdminAlert, job.Type())

	require.NoError(t, job.Execute(context.Background()))
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, "/api/v1/tasks", notifier.url)
	assert.Equal(t, "alice", notifier.actor)
	assert.Equal(t, "ValidationError", notifier.kind)
	assert.Equal(t, "title is required", notifier.message)
	assert.Equal(t, "stack", notifier.trace)
}

func TestReporter_FillsDefaults(t *testing.T) {
	notifier := &recordingNotifier{}
	jobs := queue.New(1)
	reporter := escalate.NewReporter(notifier, jobs)

	reporter.Report(escalate.Report{
		URL:     "/api/v1/tasks",
		Kind:    "InternalError",
		Message: "boom",
	})

	job := <-jobs.GetChannel()
	require.NoError(t, job.Execute(context.Background()))

	assert.Equal(t, "Anonymous", notifier.actor)
	assert.Equal(t, escalate.PlaceholderTrace, notifier.trace)
}

func TestReporter_FullQueueDropsAlert(t *testing.T) {
	notifier := &recordingNotifier{}
	jobs := queue.New(1)
	reporter := escalate.NewReporter(notifier, jobs)

	// Fill the queue, then report again. The second alert is dropped
	// without blocking or panicking.
	reporter.Report(escalate.Report{Kind: "InternalError", Message: "first"})
	reporter.Report(escalate.Report{Kind: "InternalError", Message: "second"})

	assert.Len(t, jobs.GetChannel(), 1)
}
