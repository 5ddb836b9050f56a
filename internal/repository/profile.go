package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskdesk/taskdesk/internal/domain"
)

// ProfileRepository resolves users and their roles from profile rows.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// GetUser retrieves a user by ID.
func (r *ProfileRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query, args, err := psql.
		Select("id", "username", "email", "created_at").
		From("users").
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetUser query: %w", err)
	}

	var user domain.User
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// RoleOf resolves the role of a user from which profile row exists.
// Manager takes precedence when both rows exist.
func (r *ProfileRepository) RoleOf(ctx context.Context, userID string) (domain.Role, error) {
	var isManager, isEmployee bool
	err := r.pool.QueryRow(ctx,
		`SELECT
			EXISTS (SELECT 1 FROM manager_profiles WHERE user_id = $1),
			EXISTS (SELECT 1 FROM employee_profiles WHERE user_id = $1)`,
		userID,
	).Scan(&isManager, &isEmployee)
	if err != nil {
		return domain.RoleNone, fmt.Errorf("query role: %w", err)
	}

	switch {
	case isManager:
		return domain.RoleManager, nil
	case isEmployee:
		return domain.RoleEmployee, nil
	default:
		return domain.RoleNone, nil
	}
}

// AllEmployees verifies that every given user holds the employee role.
// Returns ErrAssigneeRole naming the first offender found.
func (r *ProfileRepository) AllEmployees(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	query, args, err := psql.
		Select("user_id").
		From("employee_profiles").
		Where(sq.Eq{"user_id": userIDs}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build AllEmployees query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query employee profiles: %w", err)
	}
	defer rows.Close()

	employees := make(map[string]bool, len(userIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan employee profile: %w", err)
		}
		employees[id] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate employee rows: %w", err)
	}

	for _, id := range userIDs {
		if !employees[id] {
			return fmt.Errorf("%w: user %s", domain.ErrAssigneeRole, id)
		}
	}
	return nil
}

// GetUsers retrieves users by ID, preserving only those that exist.
func (r *ProfileRepository) GetUsers(ctx context.Context, userIDs []string) ([]*domain.User, error) {
	if len(userIDs) == 0 {
		return []*domain.User{}, nil
	}

	query, args, err := psql.
		Select("id", "username", "email", "created_at").
		From("users").
		Where(sq.Eq{"id": userIDs}).
		OrderBy("username ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetUsers query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, nil
}

// CreateUser inserts a user together with exactly one profile row for the
// given role. Operator tooling; roles never change afterwards.
func (r *ProfileRepository) CreateUser(ctx context.Context, username, email string, role domain.Role) (*domain.User, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: role %q", domain.ErrValidation, role)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := psql.
		Insert("users").
		Columns("username", "email").
		Values(username, email).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build CreateUser query: %w", err)
	}

	user := &domain.User{Username: username, Email: email}
	if err := tx.QueryRow(ctx, query, args...).Scan(&user.ID, &user.CreatedAt); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	profileTable := "employee_profiles"
	if role == domain.RoleManager {
		profileTable = "manager_profiles"
	}

	query, args, err = psql.
		Insert(profileTable).
		Columns("user_id", "name").
		Values(user.ID, username).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build profile insert query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return user, nil
}
