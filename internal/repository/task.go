package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskdesk/taskdesk/internal/domain"
)

// taskColumns is the shared list of columns for task queries. Assignees
// live in task_assignees and are loaded separately.
var taskColumns = []string{
	"id", "title", "description", "creator_id", "status", "deadline",
	"remark", "reminder_sent", "created_at", "updated_at",
}

// TaskRepository handles database operations for tasks.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.CreatorID,
		&task.Status,
		&task.Deadline,
		&task.Remark,
		&task.ReminderSent,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &task, nil
}

// scanTasks scans multiple rows into a slice of Task structs.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// loadAssignees fills AssigneeIDs for every task in one query.
func (r *TaskRepository) loadAssignees(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Task, len(tasks))
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		task.AssigneeIDs = []string{}
		byID[task.ID] = task
		ids = append(ids, task.ID)
	}

	query, args, err := psql.
		Select("task_id", "user_id").
		From("task_assignees").
		Where(sq.Eq{"task_id": ids}).
		OrderBy("user_id ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build loadAssignees query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query assignees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID, userID string
		if err := rows.Scan(&taskID, &userID); err != nil {
			return fmt.Errorf("scan assignee: %w", err)
		}
		if task, ok := byID[taskID]; ok {
			task.AssigneeIDs = append(task.AssigneeIDs, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate assignee rows: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID regardless of ownership. Used by mail
// dispatch jobs, which hold only a task ID.
func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for task: %w", err)
	}

	task, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if err := r.loadAssignees(ctx, []*domain.Task{task}); err != nil {
		return nil, err
	}
	return task, nil
}

// GetByIDForCreator retrieves a task by ID scoped to its creator. A task
// that exists but belongs to another manager surfaces as ErrTaskNotFound,
// so cross-tenant probes never reveal existence.
func (r *TaskRepository) GetByIDForCreator(ctx context.Context, taskID, creatorID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID, "creator_id": creatorID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByIDForCreator query for task: %w", err)
	}

	task, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if err := r.loadAssignees(ctx, []*domain.Task{task}); err != nil {
		return nil, err
	}
	return task, nil
}

// GetByIDForAssigneeForUpdate retrieves a task by ID scoped to one of its
// assignees, with a FOR UPDATE lock (within transaction). Non-assignees
// get ErrTaskNotFound.
func (r *TaskRepository) GetByIDForAssigneeForUpdate(ctx context.Context, tx pgx.Tx, taskID, userID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		Where(sq.Expr("EXISTS (SELECT 1 FROM task_assignees WHERE task_id = tasks.id AND user_id = ?)", userID)).
		Suffix("FOR UPDATE OF tasks").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByIDForAssigneeForUpdate query for task %s: %w", taskID, err)
	}

	return scanTask(tx.QueryRow(ctx, query, args...))
}

// GetByIDForCreatorForUpdate retrieves a creator-scoped task with a
// FOR UPDATE lock (within transaction).
func (r *TaskRepository) GetByIDForCreatorForUpdate(ctx context.Context, tx pgx.Tx, taskID, creatorID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID, "creator_id": creatorID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByIDForCreatorForUpdate query for task %s: %w", taskID, err)
	}

	return scanTask(tx.QueryRow(ctx, query, args...))
}

// ListByCreator returns all tasks created by the given manager, newest first.
func (r *TaskRepository) ListByCreator(ctx context.Context, creatorID string) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"creator_id": creatorID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListByCreator query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks by creator: %w", err)
	}

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadAssignees(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListByAssignee returns all tasks the given employee is assigned to, newest first.
func (r *TaskRepository) ListByAssignee(ctx context.Context, userID string) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Join("task_assignees ta ON ta.task_id = tasks.id").
		Where(sq.Eq{"ta.user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListByAssignee query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks by assignee: %w", err)
	}

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadAssignees(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Create creates a new task and its assignee relations within a transaction.
// Returns the task with ID, CreatedAt, and UpdatedAt populated.
func (r *TaskRepository) Create(ctx context.Context, tx pgx.Tx, task *domain.Task) (*domain.Task, error) {
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}

	query, args, err := psql.
		Insert("tasks").
		Columns("title", "description", "creator_id", "status", "deadline", "remark").
		Values(task.Title, task.Description, task.CreatorID, task.Status, task.Deadline, task.Remark).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for task: %w", err)
	}

	err = tx.QueryRow(ctx, query, args...).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if err := r.insertAssignees(ctx, tx, task.ID, task.AssigneeIDs); err != nil {
		return nil, err
	}

	return task, nil
}

// insertAssignees inserts assignee relation rows for a task.
func (r *TaskRepository) insertAssignees(ctx context.Context, tx pgx.Tx, taskID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	builder := psql.Insert("task_assignees").Columns("task_id", "user_id")
	for _, userID := range userIDs {
		builder = builder.Values(taskID, userID)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insertAssignees query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert assignees: %w", err)
	}
	return nil
}

// ReplaceAssignees replaces the assignee set of a task within a transaction.
func (r *TaskRepository) ReplaceAssignees(ctx context.Context, tx pgx.Tx, taskID string, userIDs []string) error {
	query, args, err := psql.
		Delete("task_assignees").
		Where(sq.Eq{"task_id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build ReplaceAssignees delete query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete assignees: %w", err)
	}

	return r.insertAssignees(ctx, tx, taskID, userIDs)
}

// Update applies a partial field update to a creator-scoped task within a
// transaction. Returns ErrTaskNotFound when the task does not exist or
// belongs to another manager.
func (r *TaskRepository) Update(ctx context.Context, tx pgx.Tx, taskID, creatorID string, fields map[string]interface{}) error {
	query, args, err := psql.
		Update("tasks").
		SetMap(fields).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID, "creator_id": creatorID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Update query for task %s: %w", taskID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// UpdateStatus updates status and remark with optimistic locking.
// Returns ErrInvalidTransition if the task was concurrently modified
// (oldStatus no longer matches).
func (r *TaskRepository) UpdateStatus(
	ctx context.Context,
	tx pgx.Tx,
	taskID string,
	oldStatus domain.TaskStatus,
	newStatus domain.TaskStatus,
	remark string,
) error {
	query, args, err := psql.
		Update("tasks").
		Set("status", newStatus).
		Set("remark", remark).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{
			"id":     taskID,
			"status": oldStatus,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build UpdateStatus query for task %s: %w", taskID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

// Delete removes a creator-scoped task. Assignee relations cascade.
func (r *TaskRepository) Delete(ctx context.Context, taskID, creatorID string) error {
	query, args, err := psql.
		Delete("tasks").
		Where(sq.Eq{"id": taskID, "creator_id": creatorID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Delete query for task %s: %w", taskID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// FindDueForReminder finds tasks whose deadline falls inside the sweep
// window and which still need a reminder.
func (r *TaskRepository) FindDueForReminder(ctx context.Context, now, windowEnd time.Time) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"reminder_sent": false}).
		Where(sq.Eq{"status": []domain.TaskStatus{
			domain.TaskStatusPending,
			domain.TaskStatusInProgress,
		}}).
		Where(sq.GtOrEq{"deadline": now}).
		Where(sq.LtOrEq{"deadline": windowEnd}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build FindDueForReminder query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}

	return scanTasks(rows)
}

// ClaimReminder atomically flips reminder_sent from false to true.
// Returns true when this caller won the claim; false means another sweep
// or a completed task got there first. The compare-and-set makes
// concurrent sweeps enqueue at most one reminder per task.
func (r *TaskRepository) ClaimReminder(ctx context.Context, taskID string) (bool, error) {
	query, args, err := psql.
		Update("tasks").
		Set("reminder_sent", true).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{
			"id":            taskID,
			"reminder_sent": false,
		}).
		Where(sq.Eq{"status": []domain.TaskStatus{
			domain.TaskStatusPending,
			domain.TaskStatusInProgress,
		}}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build ClaimReminder query for task %s: %w", taskID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseReminder gives a claim back so a later sweep can retry. Called
// when enqueueing the dispatch job failed after a successful claim.
func (r *TaskRepository) ReleaseReminder(ctx context.Context, taskID string) error {
	query, args, err := psql.
		Update("tasks").
		Set("reminder_sent", false).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID, "reminder_sent": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build ReleaseReminder query for task %s: %w", taskID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("release reminder: %w", err)
	}
	return nil
}
