package mailer

import (
	"context"

	"github.com/google/uuid"
)

// Job type identifiers.
const (
	JobTypeAssignment = "assignment_email"
	JobTypeReminder   = "reminder_email"
)

// AssignmentJob dispatches the assignment notification for one task. It
// carries only the task ID; assignees are loaded at execution time.
type AssignmentJob struct {
	id       uuid.UUID
	taskID   string
	notifier *Notifier
}

// NewAssignmentJob creates an assignment dispatch job for a task.
func NewAssignmentJob(notifier *Notifier, taskID string) *AssignmentJob {
	return &AssignmentJob{
		id:       uuid.New(),
		taskID:   taskID,
		notifier: notifier,
	}
}

func (j *AssignmentJob) ID() uuid.UUID { return j.id }

func (j *AssignmentJob) Type() string { return JobTypeAssignment }

func (j *AssignmentJob) Execute(ctx context.Context) error {
	return j.notifier.SendAssignment(ctx, j.taskID)
}

// ReminderJob dispatches the deadline reminder for one claimed task.
type ReminderJob struct {
	id       uuid.UUID
	taskID   string
	notifier *Notifier
}

// NewReminderJob creates a reminder dispatch job for a task.
func NewReminderJob(notifier *Notifier, taskID string) *ReminderJob {
	return &ReminderJob{
		id:       uuid.New(),
		taskID:   taskID,
		notifier: notifier,
	}
}

func (j *ReminderJob) ID() uuid.UUID { return j.id }

func (j *ReminderJob) Type() string { return JobTypeReminder }

func (j *ReminderJob) Execute(ctx context.Context) error {
	return j.notifier.SendReminder(ctx, j.taskID)
}
