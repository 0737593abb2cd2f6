package leave

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

const selectPlan = `
	SELECT l.id, l.company_id, l.user_id, u.name, l.start_date, l.end_date, l.leave_type, l.reason,
	       l.status, l.reviewed_by, l.reviewed_at, l.created_at
	FROM leave_plans l
	JOIN users u ON u.id = l.user_id`

func scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.CompanyID, &p.UserID, &p.UserName, &p.StartDate, &p.EndDate,
		&p.Type, &p.Reason, &p.Status, &p.ReviewedBy, &p.ReviewedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("scanning leave plan row: %w", err)
	}
	return &p, nil
}

// Create inserts a pending plan. The user row is locked so concurrent
// requests of the same user cannot both pass the overlap check.
func (r *PostgresRepository) Create(ctx context.Context, p *Plan) error {
	p.Status = StatusPending

	return database.WithTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var userID uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT id FROM users WHERE id = $1 AND company_id = $2 FOR UPDATE`, p.UserID, p.CompanyID,
		).Scan(&userID)
		if err != nil {
			return fmt.Errorf("locking user: %w", err)
		}

		var overlap bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM leave_plans
				WHERE user_id = $1 AND status IN ($2, $3)
				  AND start_date <= $5 AND end_date >= $4)`,
			p.UserID, StatusPending, StatusApproved, p.StartDate, p.EndDate,
		).Scan(&overlap)
		if err != nil {
			return fmt.Errorf("checking overlapping leave: %w", err)
		}
		if overlap {
			return ErrOverlap
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO leave_plans (company_id, user_id, start_date, end_date, leave_type, reason, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at`,
			p.CompanyID, p.UserID, p.StartDate, p.EndDate, p.Type, p.Reason, p.Status,
		).Scan(&p.ID, &p.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting leave plan: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a single plan of the company.
func (r *PostgresRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*Plan, error) {
	return scanPlan(r.pool.QueryRow(ctx, selectPlan+` WHERE l.id = $1 AND l.company_id = $2`, id, companyID))
}

// List retrieves plans matching filter ordered by start date.
func (r *PostgresRepository) List(ctx context.Context, companyID uuid.UUID, filter Filter) ([]Plan, error) {
	conditions := []string{"l.company_id = $1"}
	args := []any{companyID}
	argIdx := 2

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("l.user_id = $%d", argIdx))
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("l.status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("l.end_date >= $%d", argIdx))
		args = append(args, filter.From)
		argIdx++
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("l.start_date <= $%d", argIdx))
		args = append(args, filter.To)
	}

	query := selectPlan + ` WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY l.start_date ASC, u.name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing leave plans: %w", err)
	}
	defer rows.Close()

	plans := []Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating leave plan rows: %w", err)
	}
	return plans, nil
}

// Cancel cancels the user's plan while it is pending or approved and has not started.
func (r *PostgresRepository) Cancel(ctx context.Context, companyID, userID, id uuid.UUID, today time.Time) (*Plan, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE leave_plans
		SET status = $1
		WHERE id = $2 AND company_id = $3 AND user_id = $4
		  AND status IN ($5, $6) AND start_date > $7`,
		StatusCancelled, id, companyID, userID, StatusPending, StatusApproved, today)
	if err != nil {
		return nil, fmt.Errorf("cancelling leave plan: %w", err)
	}

	p, err := r.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		if p.UserID != userID {
			return nil, ErrPlanNotFound
		}
		return nil, ErrNotCancellable
	}
	return p, nil
}

// Review moves a pending plan to status. The status guard makes concurrent
// reviews resolve to exactly one winner.
func (r *PostgresRepository) Review(ctx context.Context, companyID, id, reviewerID uuid.UUID, status string) (*Plan, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE leave_plans
		SET status = $1, reviewed_by = $2, reviewed_at = NOW()
		WHERE id = $3 AND company_id = $4 AND status = $5 AND user_id <> $2`,
		status, reviewerID, id, companyID, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("reviewing leave plan: %w", err)
	}

	p, err := r.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		if p.UserID == reviewerID {
			return nil, ErrOwnRequest
		}
		return nil, ErrAlreadyReviewed
	}
	return p, nil
}
