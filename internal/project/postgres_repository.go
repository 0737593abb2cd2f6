package project

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const selectProject = `
	SELECT p.id, p.company_id, p.name, p.description, p.status, p.created_at, p.updated_at,
	       (SELECT COUNT(*) FROM project_assignments pa WHERE pa.project_id = p.id)
	FROM projects p`

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Description, &p.Status,
		&p.CreatedAt, &p.UpdatedAt, &p.MemberCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("scanning project row: %w", err)
	}
	return &p, nil
}

// Create inserts a new project record.
func (r *PostgresRepository) Create(ctx context.Context, p *Project) error {
	if p.Status == "" {
		p.Status = StatusActive
	}

	query := `
		INSERT INTO projects (company_id, name, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, p.CompanyID, p.Name, p.Description, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if database.IsPgError(err, database.CodeUniqueViolation) {
			return ErrDuplicateProjectName
		}
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

// GetByID retrieves a single project of the company.
func (r *PostgresRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*Project, error) {
	return scanProject(r.pool.QueryRow(ctx, selectProject+` WHERE p.id = $1 AND p.company_id = $2`, id, companyID))
}

// List retrieves the company's projects ordered by name.
func (r *PostgresRepository) List(ctx context.Context, companyID uuid.UUID, filter Filter) ([]Project, error) {
	conditions := []string{"p.company_id = $1"}
	args := []any{companyID}
	argIdx := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.AssignedTo != nil {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM project_assignments pa WHERE pa.project_id = p.id AND pa.user_id = $%d)", argIdx))
		args = append(args, *filter.AssignedTo)
	}

	query := selectProject + ` WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY p.name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project rows: %w", err)
	}

	if projects == nil {
		projects = []Project{}
	}

	return projects, nil
}

// Update applies the non-nil fields of upd and returns the updated project.
func (r *PostgresRepository) Update(ctx context.Context, companyID, id uuid.UUID, upd Update) (*Project, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if upd.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *upd.Name)
		argIdx++
	}
	if upd.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *upd.Description)
		argIdx++
	}
	if upd.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *upd.Status)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, companyID, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id, companyID)

	query := fmt.Sprintf(`UPDATE projects SET %s WHERE id = $%d AND company_id = $%d`,
		strings.Join(setClauses, ", "), argIdx, argIdx+1)

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if database.IsPgError(err, database.CodeUniqueViolation) {
			return nil, ErrDuplicateProjectName
		}
		return nil, fmt.Errorf("updating project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrProjectNotFound
	}

	return r.GetByID(ctx, companyID, id)
}

// Assign adds the user to the project. Assigning twice is a no-op.
func (r *PostgresRepository) Assign(ctx context.Context, companyID, projectID, userID uuid.UUID) error {
	if _, err := r.GetByID(ctx, companyID, projectID); err != nil {
		return err
	}

	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND company_id = $2 AND deactivated_at IS NULL)`,
		userID, companyID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO project_assignments (project_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, projectID, userID)
	if err != nil {
		return fmt.Errorf("assigning user: %w", err)
	}
	return nil
}

// Unassign removes the user from the project.
func (r *PostgresRepository) Unassign(ctx context.Context, companyID, projectID, userID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM project_assignments pa
		USING projects p
		WHERE pa.project_id = p.id AND p.company_id = $1 AND pa.project_id = $2 AND pa.user_id = $3`,
		companyID, projectID, userID)
	if err != nil {
		return fmt.Errorf("unassigning user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Members lists the users assigned to the project ordered by name.
func (r *PostgresRepository) Members(ctx context.Context, companyID, projectID uuid.UUID) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name, u.email, u.role, pa.assigned_at
		FROM project_assignments pa
		JOIN users u ON u.id = pa.user_id
		WHERE pa.project_id = $1 AND u.company_id = $2
		ORDER BY u.name ASC`, projectID, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing project members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Name, &m.Email, &m.Role, &m.AssignedAt); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member rows: %w", err)
	}
	return members, nil
}

// IsAssigned reports whether the user is assigned to the project.
func (r *PostgresRepository) IsAssigned(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var assigned bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM project_assignments WHERE project_id = $1 AND user_id = $2)`,
		projectID, userID,
	).Scan(&assigned)
	if err != nil {
		return false, fmt.Errorf("checking assignment: %w", err)
	}
	return assigned, nil
}
