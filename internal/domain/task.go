package domain

import "time"

// TaskStatus represents the status of a task in the state machine.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// IsValid checks if the status is one of the allowed values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the transition s -> next is allowed.
// Transitions are monotonic: pending -> in_progress -> completed and
// pending -> completed. Writing the current status again is a no-op and
// always allowed.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case TaskStatusPending:
		return next == TaskStatusInProgress || next == TaskStatusCompleted
	case TaskStatusInProgress:
		return next == TaskStatusCompleted
	default:
		return false
	}
}

// NeedsReminder reports whether the status keeps a task eligible for
// deadline reminders. Completed tasks are never reminded, regardless of
// the reminder_sent flag.
func (s TaskStatus) NeedsReminder() bool {
	return s == TaskStatusPending || s == TaskStatusInProgress
}

// DefaultDeadlineOffset is applied when a task is created without an
// explicit deadline.
const DefaultDeadlineOffset = 7 * 24 * time.Hour

// Task represents a unit of work created by a manager and assigned to
// one or more employees.
type Task struct {
	ID           string
	Title        string
	Description  string
	CreatorID    string
	AssigneeIDs  []string
	Status       TaskStatus
	Deadline     time.Time
	Remark       string
	ReminderSent bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsCreatedBy checks if the task was created by the given user.
func (t *Task) IsCreatedBy(userID string) bool {
	return t.CreatorID == userID
}

// IsAssignedTo checks if the task is assigned to the given user.
func (t *Task) IsAssignedTo(userID string) bool {
	for _, id := range t.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}
