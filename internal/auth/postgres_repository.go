package auth

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

// PostgresRepository implements UserRepository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new UserRepository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) UserRepository {
	return &PostgresRepository{pool: pool}
}

const userColumns = `id, company_id, team_id, email, name, role, password_hash, created_at, deactivated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.CompanyID, &u.TeamID, &u.Email, &u.Name, &u.Role,
		&u.PasswordHash, &u.CreatedAt, &u.DeactivatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user row: %w", err)
	}
	return &u, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// checkTeam verifies that teamID belongs to companyID.
func checkTeam(ctx context.Context, q querier, companyID uuid.UUID, teamID *uuid.UUID) error {
	if teamID == nil {
		return nil
	}
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1 AND company_id = $2)`, *teamID, companyID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking team: %w", err)
	}
	if !exists {
		return ErrUnknownTeam
	}
	return nil
}

func insertUser(ctx context.Context, q querier, u *User) error {
	query := `
		INSERT INTO users (company_id, team_id, email, name, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := q.QueryRow(ctx, query,
		u.CompanyID, u.TeamID, u.Email, u.Name, u.Role, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if database.IsPgError(err, database.CodeUniqueViolation) {
			return ErrDuplicateEmail
		}
		if database.IsPgError(err, database.CodeForeignKeyViolation) {
			return ErrUnknownTeam
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// Create inserts a new user record.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	if err := checkTeam(ctx, r.pool, u.CompanyID, u.TeamID); err != nil {
		return err
	}
	return insertUser(ctx, r.pool, u)
}

// GetByID retrieves a single user of the company.
func (r *PostgresRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND company_id = $2`
	return scanUser(r.pool.QueryRow(ctx, query, id, companyID))
}

// GetByEmail retrieves a user by email address. Emails are unique across companies.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// List retrieves the company's users ordered by name.
func (r *PostgresRepository) List(ctx context.Context, companyID uuid.UUID, filter UserFilter) ([]User, error) {
	conditions := []string{"company_id = $1"}
	args := []any{companyID}
	argIdx := 2

	if filter.TeamID != nil {
		conditions = append(conditions, fmt.Sprintf("team_id = $%d", argIdx))
		args = append(args, *filter.TeamID)
		argIdx++
	}
	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, filter.Role)
	}
	if !filter.IncludeDeactivated {
		conditions = append(conditions, "deactivated_at IS NULL")
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY name ASC`,
		userColumns, strings.Join(conditions, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	if users == nil {
		users = []User{}
	}

	return users, nil
}

// Update applies the non-nil fields of upd and returns the updated user.
func (r *PostgresRepository) Update(ctx context.Context, companyID, id uuid.UUID, upd UserUpdate) (*User, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if upd.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *upd.Name)
		argIdx++
	}
	if upd.Role != nil {
		setClauses = append(setClauses, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, *upd.Role)
		argIdx++
	}
	if upd.ClearTeam {
		setClauses = append(setClauses, "team_id = NULL")
	} else if upd.TeamID != nil {
		if err := checkTeam(ctx, r.pool, companyID, upd.TeamID); err != nil {
			return nil, err
		}
		setClauses = append(setClauses, fmt.Sprintf("team_id = $%d", argIdx))
		args = append(args, *upd.TeamID)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, companyID, id)
	}

	args = append(args, id, companyID)
	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $%d AND company_id = $%d
		RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, argIdx+1, userColumns)

	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

// SetPassword replaces the stored password hash.
func (r *PostgresRepository) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	result, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("setting password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Deactivate marks the user as deactivated. Deactivating twice is a no-op.
func (r *PostgresRepository) Deactivate(ctx context.Context, companyID, id uuid.UUID) error {
	query := `
		UPDATE users
		SET deactivated_at = COALESCE(deactivated_at, NOW())
		WHERE id = $1 AND company_id = $2`

	result, err := r.pool.Exec(ctx, query, id, companyID)
	if err != nil {
		return fmt.Errorf("deactivating user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountAll returns the total number of users across all companies.
func (r *PostgresRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// CreateCompanyWithAdmin inserts a company and its first user in one transaction.
func (r *PostgresRepository) CreateCompanyWithAdmin(ctx context.Context, c *Company, admin *User) error {
	return database.WithTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO companies (name) VALUES ($1) RETURNING id, created_at`, c.Name,
		).Scan(&c.ID, &c.CreatedAt)
		if err != nil {
			if database.IsPgError(err, database.CodeUniqueViolation) {
				return ErrDuplicateCompany
			}
			return fmt.Errorf("inserting company: %w", err)
		}

		admin.CompanyID = c.ID
		return insertUser(ctx, tx, admin)
	})
}
