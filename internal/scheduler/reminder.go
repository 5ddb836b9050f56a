// Package scheduler runs the periodic deadline-reminder sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskdesk/taskdesk/internal/mailer"
	"github.com/taskdesk/taskdesk/internal/queue"
	"github.com/taskdesk/taskdesk/internal/repository"
)

// ReminderScheduler sweeps for tasks nearing their deadline and enqueues
// one reminder-dispatch job per task. The sweep claims the reminder before
// enqueueing (compare-and-set on reminder_sent), so overlapping sweeps and
// queue redelivery cannot double-send.
type ReminderScheduler struct {
	taskRepo  *repository.TaskRepository
	notifier  *mailer.Notifier
	jobs      queue.Writer
	interval  time.Duration
	lookahead time.Duration
}

// NewReminderScheduler creates a new ReminderScheduler.
func NewReminderScheduler(
	taskRepo *repository.TaskRepository,
	notifier *mailer.Notifier,
	jobs queue.Writer,
	interval time.Duration,
	lookahead time.Duration,
) *ReminderScheduler {
	return &ReminderScheduler{
		taskRepo:  taskRepo,
		notifier:  notifier,
		jobs:      jobs,
		interval:  interval,
		lookahead: lookahead,
	}
}

// Run sweeps on a fixed period until the context is cancelled.
func (s *ReminderScheduler) Run(ctx context.Context) {
	slog.Info("reminder scheduler started",
		"interval", s.interval.String(),
		"lookahead", s.lookahead.String(),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				slog.Error("reminder sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce runs a single sweep. Returns the number of reminder jobs
// enqueued, and an error if any tasks failed.
func (s *ReminderScheduler) SweepOnce(ctx context.Context) (int, error) {
	now := time.Now()
	tasks, err := s.taskRepo.FindDueForReminder(ctx, now, now.Add(s.lookahead))
	if err != nil {
		return 0, fmt.Errorf("find due tasks: %w", err)
	}

	if len(tasks) == 0 {
		slog.Debug("no tasks due for reminder")
		return 0, nil
	}

	enqueued := 0
	var errs []error
	for _, task := range tasks {
		claimed, err := s.taskRepo.ClaimReminder(ctx, task.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", task.ID, err))
			continue
		}
		if !claimed {
			// Another sweep won the claim, or the task completed meanwhile.
			continue
		}

		if err := s.jobs.Enqueue(mailer.NewReminderJob(s.notifier, task.ID)); err != nil {
			// Give the claim back so a later sweep retries this task.
			if relErr := s.taskRepo.ReleaseReminder(ctx, task.ID); relErr != nil {
				slog.Error("failed to release reminder claim",
					"task_id", task.ID,
					"error", relErr,
				)
			}
			errs = append(errs, fmt.Errorf("enqueue reminder for task %s: %w", task.ID, err))
			continue
		}

		slog.Info("reminder enqueued", "task_id", task.ID, "deadline", task.Deadline)
		enqueued++
	}

	slog.Info("reminder sweep completed",
		"candidates", len(tasks),
		"enqueued", enqueued,
		"failed", len(errs),
	)

	if len(errs) > 0 {
		return enqueued, fmt.Errorf("swept %d/%d tasks: %v", enqueued, len(tasks), errs)
	}
	return enqueued, nil
}
