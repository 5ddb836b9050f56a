// Package escalate forwards failure detail to the admin notification
// channel. Escalation is always asynchronous: it enqueues a mail job and
// never adds latency or failure risk to the request that triggered it.
package escalate

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk/internal/queue"
)

// PlaceholderTrace is used when no stack trace is available, e.g. for
// manual validation failures reported by handlers.
const PlaceholderTrace = "No traceback available."

// AdminNotifier sends one fully-detailed failure report to the admin
// channel. Implemented by mailer.Notifier.
type AdminNotifier interface {
	SendAdminAlert(ctx context.Context, url, actor, kind, message, trace string) error
}

// Report is the captured failure detail.
type Report struct {
	URL     string
	Actor   string
	Kind    string
	Message string
	Trace   string
}

// Reporter builds admin alert jobs and hands them to the deferred queue.
type Reporter struct {
	notifier AdminNotifier
	jobs     queue.Writer
}

// NewReporter creates a new Reporter.
func NewReporter(notifier AdminNotifier, jobs queue.Writer) *Reporter {
	return &Reporter{
		notifier: notifier,
		jobs:     jobs,
	}
}

// Report enqueues an admin alert for the given failure. A full queue drops
// the alert with a log entry rather than blocking the caller.
func (r *Reporter) Report(report Report) {
	if report.Actor == "" {
		report.Actor = "Anonymous"
	}
	if report.Trace == "" {
		report.Trace = PlaceholderTrace
	}

	job := newAlertJob(r.notifier, report)
	if err := r.jobs.Enqueue(job); err != nil {
		slog.Error("failed to enqueue admin alert",
			"kind", report.Kind,
			"url", report.URL,
			"error", err,
		)
		return
	}

	slog.Debug("admin alert enqueued", "kind", report.Kind, "url", report.URL)
}

// JobTypeAdminAlert identifies admin alert jobs in the queue.
const JobTypeAdminAlert = "admin_alert"

// alertJob carries one failure report to the admin channel.
type alertJob struct {
	id       uuid.UUID
	report   Report
	notifier AdminNotifier
}

func newAlertJob(notifier AdminNotifier, report Report) *alertJob {
	return &alertJob{
		id:       uuid.New(),
		report:   report,
		notifier: notifier,
	}
}

func (j *alertJob) ID() uuid.UUID { return j.id }

func (j *alertJob) Type() string { return JobTypeAdminAlert }

func (j *alertJob) Execute(ctx context.Context) error {
	return j.notifier.SendAdminAlert(ctx,
		j.report.URL,
		j.report.Actor,
		j.report.Kind,
		j.report.Message,
		j.report.Trace,
	)
}
