package team

import (
	"context"
	"errors"
	"fmt"

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

const selectTeam = `
	SELECT t.id, t.company_id, t.name, t.created_at, t.updated_at,
	       (SELECT COUNT(*) FROM users u WHERE u.team_id = t.id AND u.deactivated_at IS NULL)
	FROM teams t`

func scanTeam(row pgx.Row) (*Team, error) {
	var t Team
	err := row.Scan(&t.ID, &t.CompanyID, &t.Name, &t.CreatedAt, &t.UpdatedAt, &t.MemberCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("scanning team row: %w", err)
	}
	return &t, nil
}

// Create inserts a new team record.
func (r *PostgresRepository) Create(ctx context.Context, t *Team) error {
	query := `
		INSERT INTO teams (company_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, t.CompanyID, t.Name).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if database.IsPgError(err, database.CodeUniqueViolation) {
			return ErrDuplicateTeamName
		}
		return fmt.Errorf("inserting team: %w", err)
	}

	return nil
}

// GetByID retrieves a single team of the company.
func (r *PostgresRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*Team, error) {
	return scanTeam(r.pool.QueryRow(ctx, selectTeam+` WHERE t.id = $1 AND t.company_id = $2`, id, companyID))
}

// List retrieves the company's teams ordered by name.
func (r *PostgresRepository) List(ctx context.Context, companyID uuid.UUID) ([]Team, error) {
	rows, err := r.pool.Query(ctx, selectTeam+` WHERE t.company_id = $1 ORDER BY t.name ASC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team rows: %w", err)
	}

	if teams == nil {
		teams = []Team{}
	}

	return teams, nil
}

// Rename changes the team's name.
func (r *PostgresRepository) Rename(ctx context.Context, companyID, id uuid.UUID, name string) (*Team, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE teams SET name = $1, updated_at = NOW() WHERE id = $2 AND company_id = $3`,
		name, id, companyID)
	if err != nil {
		if database.IsPgError(err, database.CodeUniqueViolation) {
			return nil, ErrDuplicateTeamName
		}
		return nil, fmt.Errorf("renaming team: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrTeamNotFound
	}

	return r.GetByID(ctx, companyID, id)
}

// Delete removes a team. Returns ErrTeamHasUsers if users still reference
// it (FK RESTRICT).
func (r *PostgresRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		if database.IsPgError(err, database.CodeForeignKeyViolation) {
			return ErrTeamHasUsers
		}
		return fmt.Errorf("deleting team: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTeamNotFound
	}

	return nil
}
