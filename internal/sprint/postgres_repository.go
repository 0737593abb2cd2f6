package sprint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syncup/syncup/internal/database"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

const sprintColumns = `id, company_id, project_id, name, goal, start_date, end_date, status, created_at, updated_at`

const taskColumns = `id, company_id, project_id, sprint_id, title, description, status, priority,
	story_points, assignee_id, due_date, completed_at, created_at, updated_at`

func scanSprint(row pgx.Row) (*Sprint, error) {
	var s Sprint
	err := row.Scan(&s.ID, &s.CompanyID, &s.ProjectID, &s.Name, &s.Goal,
		&s.StartDate, &s.EndDate, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSprintNotFound
		}
		return nil, fmt.Errorf("scanning sprint row: %w", err)
	}
	return &s, nil
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.CompanyID, &t.ProjectID, &t.SprintID, &t.Title, &t.Description,
		&t.Status, &t.Priority, &t.StoryPoints, &t.AssigneeID, &t.DueDate, &t.CompletedAt,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("scanning task row: %w", err)
	}
	return &t, nil
}

func collectSprints(rows pgx.Rows, err error) ([]Sprint, error) {
	if err != nil {
		return nil, fmt.Errorf("listing sprints: %w", err)
	}
	defer rows.Close()

	sprints := []Sprint{}
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, err
		}
		sprints = append(sprints, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sprint rows: %w", err)
	}
	return sprints, nil
}

// --- Sprints ---

// CreateSprint inserts a new sprint in Planning status.
func (r *PostgresRepository) CreateSprint(ctx context.Context, s *Sprint) error {
	s.Status = StatusPlanning

	query := `
		INSERT INTO sprints (company_id, project_id, name, goal, start_date, end_date, status)
		SELECT p.company_id, p.id, $3::text, $4::text, $5::date, $6::date, $7::text
		FROM projects p
		WHERE p.id = $2 AND p.company_id = $1
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		s.CompanyID, s.ProjectID, s.Name, s.Goal, s.StartDate, s.EndDate, s.Status,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSprintMismatch
		}
		return fmt.Errorf("inserting sprint: %w", err)
	}
	return nil
}

// GetSprint retrieves a single sprint of the company.
func (r *PostgresRepository) GetSprint(ctx context.Context, companyID, id uuid.UUID) (*Sprint, error) {
	query := `SELECT ` + sprintColumns + ` FROM sprints WHERE id = $1 AND company_id = $2`
	return scanSprint(r.pool.QueryRow(ctx, query, id, companyID))
}

// ListSprints retrieves the sprints of a project, most recent first.
func (r *PostgresRepository) ListSprints(ctx context.Context, companyID, projectID uuid.UUID) ([]Sprint, error) {
	query := `SELECT ` + sprintColumns + `
		FROM sprints
		WHERE company_id = $1 AND project_id = $2
		ORDER BY start_date DESC, created_at DESC`
	return collectSprints(r.pool.Query(ctx, query, companyID, projectID))
}

// ListActiveSprints retrieves the Active sprints of the given projects.
func (r *PostgresRepository) ListActiveSprints(ctx context.Context, companyID uuid.UUID, projectIDs []uuid.UUID) ([]Sprint, error) {
	if len(projectIDs) == 0 {
		return []Sprint{}, nil
	}
	query := `SELECT ` + sprintColumns + `
		FROM sprints
		WHERE company_id = $1 AND status = $2 AND project_id = ANY($3::uuid[])
		ORDER BY end_date ASC`
	return collectSprints(r.pool.Query(ctx, query, companyID, StatusActive, uuidStrings(projectIDs)))
}

// UpdateSprint applies the non-nil fields of upd and returns the updated sprint.
func (r *PostgresRepository) UpdateSprint(ctx context.Context, companyID, id uuid.UUID, upd SprintUpdate) (*Sprint, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if upd.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *upd.Name)
		argIdx++
	}
	if upd.Goal != nil {
		setClauses = append(setClauses, fmt.Sprintf("goal = $%d", argIdx))
		args = append(args, *upd.Goal)
		argIdx++
	}
	if upd.StartDate != nil {
		setClauses = append(setClauses, fmt.Sprintf("start_date = $%d", argIdx))
		args = append(args, *upd.StartDate)
		argIdx++
	}
	if upd.EndDate != nil {
		setClauses = append(setClauses, fmt.Sprintf("end_date = $%d", argIdx))
		args = append(args, *upd.EndDate)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.GetSprint(ctx, companyID, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id, companyID)

	query := fmt.Sprintf(`
		UPDATE sprints
		SET %s
		WHERE id = $%d AND company_id = $%d
		RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, argIdx+1, sprintColumns)

	return scanSprint(r.pool.QueryRow(ctx, query, args...))
}

// lockSprint loads a sprint with a row lock inside tx.
func lockSprint(ctx context.Context, tx pgx.Tx, companyID, id uuid.UUID) (*Sprint, error) {
	query := `SELECT ` + sprintColumns + ` FROM sprints WHERE id = $1 AND company_id = $2 FOR UPDATE`
	return scanSprint(tx.QueryRow(ctx, query, id, companyID))
}

func setStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (*Sprint, error) {
	query := `UPDATE sprints SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + sprintColumns
	return scanSprint(tx.QueryRow(ctx, query, status, id))
}

// StartSprint moves a Planning sprint to Active. The one-active-per-project
// rule is checked in the transaction and backed by a partial unique index.
func (r *PostgresRepository) StartSprint(ctx context.Context, companyID, id uuid.UUID) (*Sprint, error) {
	var started *Sprint
	err := database.WithTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		s, err := lockSprint(ctx, tx, companyID, id)
		if err != nil {
			return err
		}
		if s.Status != StatusPlanning {
			return ErrInvalidTransition
		}

		var active bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM sprints WHERE project_id = $1 AND status = $2)`,
			s.ProjectID, StatusActive,
		).Scan(&active)
		if err != nil {
			return fmt.Errorf("checking active sprint: %w", err)
		}
		if active {
			return ErrActiveSprintExists
		}

		started, err = setStatus(ctx, tx, id, StatusActive)
		return err
	})
	if err != nil {
		if database.IsPgError(err, database.CodeUniqueViolation) {
			return nil, ErrActiveSprintExists
		}
		return nil, err
	}
	return started, nil
}

// CompleteSprint moves an Active sprint to Completed and returns unfinished
// tasks to the backlog.
func (r *PostgresRepository) CompleteSprint(ctx context.Context, companyID, id uuid.UUID) (*Sprint, int, error) {
	var completed *Sprint
	var moved int64
	err := database.WithTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		s, err := lockSprint(ctx, tx, companyID, id)
		if err != nil {
			return err
		}
		if s.Status != StatusActive {
			return ErrInvalidTransition
		}

		result, err := tx.Exec(ctx, `
			UPDATE tasks
			SET sprint_id = NULL, updated_at = NOW()
			WHERE sprint_id = $1 AND status <> $2`, id, TaskDone)
		if err != nil {
			return fmt.Errorf("moving unfinished tasks to backlog: %w", err)
		}
		moved = result.RowsAffected()

		completed, err = setStatus(ctx, tx, id, StatusCompleted)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return completed, int(moved), nil
}

// EndedSprints lists Active sprints whose end date is before day.
func (r *PostgresRepository) EndedSprints(ctx context.Context, day time.Time) ([]Sprint, error) {
	query := `SELECT ` + sprintColumns + `
		FROM sprints
		WHERE status = $1 AND end_date < $2
		ORDER BY end_date ASC`
	return collectSprints(r.pool.Query(ctx, query, StatusActive, day))
}

// StartableSprints lists Planning sprints due to start whose project is idle.
func (r *PostgresRepository) StartableSprints(ctx context.Context, day time.Time) ([]Sprint, error) {
	query := `SELECT ` + sprintColumns + `
		FROM sprints s
		WHERE s.status = $1 AND s.start_date <= $2 AND s.end_date >= $2
		  AND NOT EXISTS (SELECT 1 FROM sprints a WHERE a.project_id = s.project_id AND a.status = $3)
		ORDER BY s.start_date ASC, s.created_at ASC`
	return collectSprints(r.pool.Query(ctx, query, StatusPlanning, day, StatusActive))
}

// --- Tasks ---

// checkAssignee verifies that the assignee is an active user of the company.
func (r *PostgresRepository) checkAssignee(ctx context.Context, companyID uuid.UUID, assigneeID *uuid.UUID) error {
	if assigneeID == nil {
		return nil
	}
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND company_id = $2 AND deactivated_at IS NULL)`,
		*assigneeID, companyID,
	).Scan(&ok)
	if err != nil {
		return fmt.Errorf("checking assignee: %w", err)
	}
	if !ok {
		return ErrInvalidAssignee
	}
	return nil
}

// checkSprint verifies that the sprint belongs to the project and is not completed.
func (r *PostgresRepository) checkSprint(ctx context.Context, companyID, projectID uuid.UUID, sprintID *uuid.UUID) error {
	if sprintID == nil {
		return nil
	}
	s, err := r.GetSprint(ctx, companyID, *sprintID)
	if err != nil {
		if errors.Is(err, ErrSprintNotFound) {
			return ErrSprintMismatch
		}
		return err
	}
	if s.ProjectID != projectID || s.Status == StatusCompleted {
		return ErrSprintMismatch
	}
	return nil
}

// CreateTask inserts a new task.
func (r *PostgresRepository) CreateTask(ctx context.Context, t *Task) error {
	if err := r.checkSprint(ctx, t.CompanyID, t.ProjectID, t.SprintID); err != nil {
		return err
	}
	if err := r.checkAssignee(ctx, t.CompanyID, t.AssigneeID); err != nil {
		return err
	}
	if t.Status == "" {
		t.Status = TaskTodo
	}
	if t.Priority == "" {
		t.Priority = "medium"
	}

	query := `
		INSERT INTO tasks (company_id, project_id, sprint_id, title, description, status, priority,
		                   story_points, assignee_id, due_date, completed_at)
		SELECT p.company_id, p.id, $3::uuid, $4::text, $5::text, $6::text, $7::text, $8::int,
		       $9::uuid, $10::date, CASE WHEN $6::text = 'done' THEN NOW() END
		FROM projects p
		WHERE p.id = $2 AND p.company_id = $1
		RETURNING completed_at, id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		t.CompanyID, t.ProjectID, t.SprintID, t.Title, t.Description, t.Status, t.Priority,
		t.StoryPoints, t.AssigneeID, t.DueDate,
	).Scan(&t.CompletedAt, &t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSprintMismatch
		}
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// GetTask retrieves a single task of the company.
func (r *PostgresRepository) GetTask(ctx context.Context, companyID, id uuid.UUID) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND company_id = $2`
	return scanTask(r.pool.QueryRow(ctx, query, id, companyID))
}

// ListTasks retrieves the company's tasks matching filter, by priority and age.
func (r *PostgresRepository) ListTasks(ctx context.Context, companyID uuid.UUID, filter TaskFilter) ([]Task, error) {
	conditions := []string{"company_id = $1"}
	args := []any{companyID}
	argIdx := 2

	if filter.ProjectID != nil {
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", argIdx))
		args = append(args, *filter.ProjectID)
		argIdx++
	}
	if filter.SprintID != nil {
		conditions = append(conditions, fmt.Sprintf("sprint_id = $%d", argIdx))
		args = append(args, *filter.SprintID)
		argIdx++
	}
	if filter.Backlog {
		conditions = append(conditions, "sprint_id IS NULL")
	}
	if filter.AssigneeID != nil {
		conditions = append(conditions, fmt.Sprintf("assignee_id = $%d", argIdx))
		args = append(args, *filter.AssigneeID)
		argIdx++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.OpenOnly {
		conditions = append(conditions, fmt.Sprintf("status <> $%d", argIdx))
		args = append(args, TaskDone)
	}

	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END,
		         created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task rows: %w", err)
	}
	return tasks, nil
}

// UpdateTask applies the non-nil fields of upd. Moving into done stamps
// completed_at; moving out of done clears it.
func (r *PostgresRepository) UpdateTask(ctx context.Context, companyID, id uuid.UUID, upd TaskUpdate) (*Task, error) {
	current, err := r.GetTask(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !upd.ClearSprint {
		if err := r.checkSprint(ctx, companyID, current.ProjectID, upd.SprintID); err != nil {
			return nil, err
		}
	}
	if !upd.ClearAssignee {
		if err := r.checkAssignee(ctx, companyID, upd.AssigneeID); err != nil {
			return nil, err
		}
	}

	var setClauses []string
	var args []any
	argIdx := 1

	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
		setClauses = append(setClauses, fmt.Sprintf(
			"completed_at = CASE WHEN $%d = 'done' THEN COALESCE(completed_at, NOW()) ELSE NULL END", argIdx-1))
	}
	if upd.Priority != nil {
		add("priority", *upd.Priority)
	}
	if upd.StoryPoints != nil {
		add("story_points", *upd.StoryPoints)
	}
	if upd.ClearSprint {
		setClauses = append(setClauses, "sprint_id = NULL")
	} else if upd.SprintID != nil {
		add("sprint_id", *upd.SprintID)
	}
	if upd.ClearAssignee {
		setClauses = append(setClauses, "assignee_id = NULL")
	} else if upd.AssigneeID != nil {
		add("assignee_id", *upd.AssigneeID)
	}
	if upd.DueDate != nil {
		add("due_date", *upd.DueDate)
	}

	if len(setClauses) == 0 {
		return current, nil
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id, companyID)

	query := fmt.Sprintf(`
		UPDATE tasks
		SET %s
		WHERE id = $%d AND company_id = $%d
		RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, argIdx+1, taskColumns)

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// DeleteTask removes a task.
func (r *PostgresRepository) DeleteTask(ctx context.Context, companyID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
