package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/mailer"
	"github.com/taskdesk/taskdesk/internal/queue"
	"github.com/taskdesk/taskdesk/internal/repository"
)

// TaskService coordinates the task lifecycle: creation, edits, deletion,
// and status transitions, with role gates checked before any mutation.
type TaskService struct {
	pool        *pgxpool.Pool
	taskRepo    *repository.TaskRepository
	profileRepo *repository.ProfileRepository
	jobs        queue.Writer
	notifier    *mailer.Notifier
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	pool *pgxpool.Pool,
	taskRepo *repository.TaskRepository,
	profileRepo *repository.ProfileRepository,
	jobs queue.Writer,
	notifier *mailer.Notifier,
) *TaskService {
	return &TaskService{
		pool:        pool,
		taskRepo:    taskRepo,
		profileRepo: profileRepo,
		jobs:        jobs,
		notifier:    notifier,
	}
}

// CreateTaskParams are the inputs for CreateTask.
type CreateTaskParams struct {
	Title       string
	Description string
	AssigneeIDs []string
	Deadline    time.Time
	Status      domain.TaskStatus
}

// UpdateTaskParams are the partial inputs for UpdateTask. Nil fields are
// left untouched.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	AssigneeIDs *[]string
	Deadline    *time.Time
	Status      *domain.TaskStatus
	Remark      *string
}

// rollback rolls a transaction back, tolerating the already-committed case.
func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.Error("failed to rollback transaction", "error", err)
	}
}

// enqueueAssignment hands the assignment notification to the deferred
// queue. Fire-and-forget: delivery never blocks or fails the request.
func (s *TaskService) enqueueAssignment(taskID string) {
	if err := s.jobs.Enqueue(mailer.NewAssignmentJob(s.notifier, taskID)); err != nil {
		slog.Error("failed to enqueue assignment notification",
			"task_id", taskID,
			"error", err,
		)
	}
}

// CreateTask creates a task on behalf of a manager, persists it together
// with its assignee relations, and enqueues the assignment notification.
func (s *TaskService) CreateTask(ctx context.Context, identity *domain.Identity, params CreateTaskParams) (*domain.Task, error) {
	if identity.Role != domain.RoleManager {
		return nil, domain.ErrNotManager
	}

	status := params.Status
	if status == "" {
		status = domain.TaskStatusPending
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, params.Status)
	}

	deadline := params.Deadline
	if deadline.IsZero() {
		deadline = time.Now().Add(domain.DefaultDeadlineOffset)
	} else if deadline.Before(time.Now()) {
		return nil, fmt.Errorf("%w: deadline is in the past", domain.ErrInvalidDeadline)
	}

	if len(params.AssigneeIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one assignee is required", domain.ErrValidation)
	}
	if err := s.profileRepo.AllEmployees(ctx, params.AssigneeIDs); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task := &domain.Task{
		Title:       params.Title,
		Description: params.Description,
		CreatorID:   identity.User.ID,
		AssigneeIDs: params.AssigneeIDs,
		Status:      status,
		Deadline:    deadline,
	}

	task, err = s.taskRepo.Create(ctx, tx, task)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.enqueueAssignment(task.ID)

	slog.Info("task created",
		"task_id", task.ID,
		"creator_id", task.CreatorID,
		"assignees", len(task.AssigneeIDs),
	)

	return task, nil
}

// ListTasksForManager returns the tasks created by the acting manager.
func (s *TaskService) ListTasksForManager(ctx context.Context, identity *domain.Identity) ([]*domain.Task, error) {
	if identity.Role != domain.RoleManager {
		return nil, domain.ErrNotManager
	}
	return s.taskRepo.ListByCreator(ctx, identity.User.ID)
}

// GetTask returns one task, scoped to its creator. A task owned by another
// manager is indistinguishable from an absent one.
func (s *TaskService) GetTask(ctx context.Context, identity *domain.Identity, taskID string) (*domain.Task, error) {
	if identity.Role != domain.RoleManager {
		return nil, domain.ErrNotManager
	}
	return s.taskRepo.GetByIDForCreator(ctx, taskID, identity.User.ID)
}

// UpdateTask applies a partial update to a creator-scoped task. Changing
// the deadline resets the reminder flag so the new deadline gets its own
// reminder; changing the assignee set re-validates roles and re-notifies.
func (s *TaskService) UpdateTask(ctx context.Context, identity *domain.Identity, taskID string, params UpdateTaskParams) (*domain.Task, error) {
	if identity.Role != domain.RoleManager {
		return nil, domain.ErrNotManager
	}

	if params.AssigneeIDs != nil {
		if len(*params.AssigneeIDs) == 0 {
			return nil, fmt.Errorf("%w: at least one assignee is required", domain.ErrValidation)
		}
		if err := s.profileRepo.AllEmployees(ctx, *params.AssigneeIDs); err != nil {
			return nil, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, err := s.taskRepo.GetByIDForCreatorForUpdate(ctx, tx, taskID, identity.User.ID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if params.Title != nil {
		fields["title"] = *params.Title
	}
	if params.Description != nil {
		fields["description"] = *params.Description
	}
	if params.Remark != nil {
		fields["remark"] = *params.Remark
	}
	if params.Status != nil {
		if !params.Status.IsValid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, *params.Status)
		}
		if !task.Status.CanTransitionTo(*params.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, task.Status, *params.Status)
		}
		fields["status"] = *params.Status
	}
	if params.Deadline != nil {
		if params.Deadline.IsZero() {
			return nil, fmt.Errorf("%w: deadline is required", domain.ErrInvalidDeadline)
		}
		if !params.Deadline.Equal(task.Deadline) {
			fields["deadline"] = *params.Deadline
			fields["reminder_sent"] = false
		}
	}

	if len(fields) > 0 {
		if err := s.taskRepo.Update(ctx, tx, taskID, identity.User.ID, fields); err != nil {
			return nil, err
		}
	}

	assigneesChanged := false
	if params.AssigneeIDs != nil {
		if err := s.taskRepo.ReplaceAssignees(ctx, tx, taskID, *params.AssigneeIDs); err != nil {
			return nil, err
		}
		assigneesChanged = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if assigneesChanged {
		s.enqueueAssignment(taskID)
	}

	slog.Info("task updated", "task_id", taskID, "manager_id", identity.User.ID)

	return s.taskRepo.GetByIDForCreator(ctx, taskID, identity.User.ID)
}

// DeleteTask removes a creator-scoped task and, via cascade, its assignee
// relations.
func (s *TaskService) DeleteTask(ctx context.Context, identity *domain.Identity, taskID string) error {
	if identity.Role != domain.RoleManager {
		return domain.ErrNotManager
	}

	if err := s.taskRepo.Delete(ctx, taskID, identity.User.ID); err != nil {
		return err
	}

	slog.Info("task deleted", "task_id", taskID, "manager_id", identity.User.ID)
	return nil
}

// ListTasksForEmployee returns the tasks the acting employee is assigned to.
func (s *TaskService) ListTasksForEmployee(ctx context.Context, identity *domain.Identity) ([]*domain.Task, error) {
	if identity.Role != domain.RoleEmployee {
		return nil, domain.ErrNotEmployee
	}
	return s.taskRepo.ListByAssignee(ctx, identity.User.ID)
}

// UpdateTaskStatus lets an assigned employee move a task forward through
// the state machine, optionally updating the remark. Tasks the employee is
// not assigned to surface as not found.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, identity *domain.Identity, taskID string, status domain.TaskStatus, remark *string) (*domain.Task, error) {
	if identity.Role != domain.RoleEmployee {
		return nil, domain.ErrNotEmployee
	}

	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, err := s.taskRepo.GetByIDForAssigneeForUpdate(ctx, tx, taskID, identity.User.ID)
	if err != nil {
		return nil, err
	}

	if !task.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, task.Status, status)
	}

	newRemark := task.Remark
	if remark != nil {
		newRemark = *remark
	}

	if err := s.taskRepo.UpdateStatus(ctx, tx, taskID, task.Status, status, newRemark); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("task status updated",
		"task_id", taskID,
		"employee_id", identity.User.ID,
		"old_status", task.Status,
		"new_status", status,
	)

	return s.taskRepo.GetByID(ctx, taskID)
}
