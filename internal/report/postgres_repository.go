package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

const selectReport = `
	SELECT r.id, r.company_id, r.user_id, u.name, r.report_date, r.yesterday, r.today, r.blockers,
	       r.created_at, r.updated_at
	FROM daily_reports r
	JOIN users u ON u.id = r.user_id`

func scanReport(row pgx.Row) (*Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.CompanyID, &r.UserID, &r.UserName, &r.ReportDate,
		&r.Yesterday, &r.Today, &r.Blockers, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("scanning report row: %w", err)
	}
	return &r, nil
}

// Upsert inserts the report or, when the author already reported that day,
// replaces its content.
func (r *PostgresRepository) Upsert(ctx context.Context, rep *Report) error {
	query := `
		INSERT INTO daily_reports (company_id, user_id, report_date, yesterday, today, blockers)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, report_date) DO UPDATE
		SET yesterday = EXCLUDED.yesterday,
		    today = EXCLUDED.today,
		    blockers = EXCLUDED.blockers,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		rep.CompanyID, rep.UserID, rep.ReportDate, rep.Yesterday, rep.Today, rep.Blockers,
	).Scan(&rep.ID, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting report: %w", err)
	}
	return nil
}

// GetByID retrieves a single report of the company.
func (r *PostgresRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*Report, error) {
	return scanReport(r.pool.QueryRow(ctx, selectReport+` WHERE r.id = $1 AND r.company_id = $2`, id, companyID))
}

// List retrieves reports matching filter, newest day first.
func (r *PostgresRepository) List(ctx context.Context, companyID uuid.UUID, filter Filter) ([]Report, error) {
	conditions := []string{"r.company_id = $1"}
	args := []any{companyID}
	argIdx := 2

	if !filter.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("r.report_date >= $%d", argIdx))
		args = append(args, filter.From)
		argIdx++
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("r.report_date <= $%d", argIdx))
		args = append(args, filter.To)
		argIdx++
	}
	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", argIdx))
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.TeamID != nil {
		conditions = append(conditions, fmt.Sprintf("u.team_id = $%d", argIdx))
		args = append(args, *filter.TeamID)
	}
	if filter.BlockersOnly {
		conditions = append(conditions, "r.blockers <> ''")
	}

	query := selectReport + ` WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY r.report_date DESC, u.name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report rows: %w", err)
	}
	return reports, nil
}

const missingQuery = `
	SELECT u.company_id, u.id, u.name, u.email, u.team_id
	FROM users u
	WHERE u.deactivated_at IS NULL
	  AND NOT EXISTS (
	      SELECT 1 FROM daily_reports r WHERE r.user_id = u.id AND r.report_date = $1)`

// Missing lists the company's active users without a report for day.
func (r *PostgresRepository) Missing(ctx context.Context, companyID uuid.UUID, day time.Time, teamID *uuid.UUID) ([]Missing, error) {
	query := missingQuery + ` AND u.company_id = $2 AND ($3::uuid IS NULL OR u.team_id = $3) ORDER BY u.name ASC`
	return collectMissing(r.pool.Query(ctx, query, day, companyID, teamID))
}

// MissingAll lists active users of every company without a report for day.
func (r *PostgresRepository) MissingAll(ctx context.Context, day time.Time) ([]Missing, error) {
	return collectMissing(r.pool.Query(ctx, missingQuery+` ORDER BY u.company_id, u.name`, day))
}

func collectMissing(rows pgx.Rows, err error) ([]Missing, error) {
	if err != nil {
		return nil, fmt.Errorf("listing missing reports: %w", err)
	}
	defer rows.Close()

	missing := []Missing{}
	for rows.Next() {
		var m Missing
		if err := rows.Scan(&m.CompanyID, &m.UserID, &m.Name, &m.Email, &m.TeamID); err != nil {
			return nil, fmt.Errorf("scanning missing report row: %w", err)
		}
		missing = append(missing, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating missing report rows: %w", err)
	}
	return missing, nil
}
