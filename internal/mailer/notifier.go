// Package mailer composes and dispatches the system's outbound email:
// assignment notifications, deadline reminders, and admin error alerts.
// Message content is regenerated from task state on every attempt, so a
// redelivered job produces an identical message.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/repository"
)

// DeadlineFormat is the fixed layout used for deadlines in mail bodies.
const DeadlineFormat = "2006-01-02 15:04:05"

// Notifier loads task state and sends the corresponding messages.
type Notifier struct {
	taskRepo    *repository.TaskRepository
	profileRepo *repository.ProfileRepository
	transport   Transport
	fromAddr    string
	adminAddr   string
}

// NewNotifier creates a new Notifier.
func NewNotifier(
	taskRepo *repository.TaskRepository,
	profileRepo *repository.ProfileRepository,
	transport Transport,
	fromAddr string,
	adminAddr string,
) *Notifier {
	return &Notifier{
		taskRepo:    taskRepo,
		profileRepo: profileRepo,
		transport:   transport,
		fromAddr:    fromAddr,
		adminAddr:   adminAddr,
	}
}

// loadTask fetches the task for a dispatch job. A missing task is a stale
// job, not an error: the task was deleted between enqueue and dispatch.
func (n *Notifier) loadTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := n.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			slog.Info("skipping mail for deleted task", "task_id", taskID)
			return nil, nil
		}
		return nil, fmt.Errorf("load task %s: %w", taskID, err)
	}
	return task, nil
}

// SendAssignment mails every assignee of a freshly created task.
func (n *Notifier) SendAssignment(ctx context.Context, taskID string) error {
	task, err := n.loadTask(ctx, taskID)
	if err != nil || task == nil {
		return err
	}

	creator, err := n.profileRepo.GetUser(ctx, task.CreatorID)
	if err != nil {
		return fmt.Errorf("load creator for task %s: %w", taskID, err)
	}

	assignees, err := n.profileRepo.GetUsers(ctx, task.AssigneeIDs)
	if err != nil {
		return fmt.Errorf("load assignees for task %s: %w", taskID, err)
	}

	subject := fmt.Sprintf("New Task Assigned - %s", task.Title)
	var sendErrs []error
	for _, assignee := range assignees {
		body := fmt.Sprintf(
			"Hello %s,\n\nYou have been assigned a new task by %s.\n\nTask Title: %s\nDescription: %s\nDeadline: %s\n",
			assignee.Username,
			creator.Username,
			task.Title,
			task.Description,
			task.Deadline.Format(DeadlineFormat),
		)
		if err := n.transport.Send(ctx, n.fromAddr, []string{assignee.Email}, subject, body); err != nil {
			sendErrs = append(sendErrs, fmt.Errorf("send to %s: %w", assignee.Email, err))
			continue
		}
		slog.Info("assignment mail sent", "task_id", task.ID, "recipient", assignee.Email)
	}

	return errors.Join(sendErrs...)
}

// SendReminder mails every assignee of a task nearing its deadline. The
// reminder claim was taken before this job was enqueued, so a completed
// task here means it was finished after the sweep: skip silently.
// Per-recipient failures are reported but never release the claim.
func (n *Notifier) SendReminder(ctx context.Context, taskID string) error {
	task, err := n.loadTask(ctx, taskID)
	if err != nil || task == nil {
		return err
	}

	if !task.Status.NeedsReminder() {
		slog.Info("skipping reminder for completed task", "task_id", task.ID)
		return nil
	}

	assignees, err := n.profileRepo.GetUsers(ctx, task.AssigneeIDs)
	if err != nil {
		return fmt.Errorf("load assignees for task %s: %w", taskID, err)
	}

	subject := fmt.Sprintf("Task Deadline Reminder - %s", task.Title)
	var sendErrs []error
	for _, assignee := range assignees {
		body := fmt.Sprintf(
			"Hello %s,\n\nThis is a reminder that the deadline for the task '%s' is approaching on %s.\nPlease ensure that you complete the task on time.\n",
			assignee.Username,
			task.Title,
			task.Deadline.Format(DeadlineFormat),
		)
		if err := n.transport.Send(ctx, n.fromAddr, []string{assignee.Email}, subject, body); err != nil {
			sendErrs = append(sendErrs, fmt.Errorf("send to %s: %w", assignee.Email, err))
			continue
		}
		slog.Info("reminder mail sent", "task_id", task.ID, "recipient", assignee.Email)
	}

	return errors.Join(sendErrs...)
}

// SendAdminAlert mails the full failure detail to the admin address.
func (n *Notifier) SendAdminAlert(ctx context.Context, url, actor, kind, message, trace string) error {
	subject := fmt.Sprintf("Error Alert - %s", kind)
	body := fmt.Sprintf(
		"An error occurred at %s.\n\nURL: %s\nUser: %s\nError Type: %s\nMessage: %s\n\nTraceback:\n%s\n",
		time.Now().Format(DeadlineFormat),
		url,
		actor,
		kind,
		message,
		trace,
	)
	if err := n.transport.Send(ctx, n.fromAddr, []string{n.adminAddr}, subject, body); err != nil {
		return fmt.Errorf("send admin alert: %w", err)
	}
	slog.Info("admin alert sent", "kind", kind, "url", url)
	return nil
}
