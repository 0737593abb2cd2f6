package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syncup/syncup/internal/database"
)

// Result is the tabular outcome of a query.
type Result struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
}

// Runner executes a guarded query.
type Runner interface {
	Run(ctx context.Context, sql string) (*Result, error)
}

// Executor runs queries in read-only transactions with a statement timeout
// and a row cap.
type Executor struct {
	pool    *pgxpool.Pool
	maxRows int
	timeout time.Duration
	role    string
}

// NewExecutor creates a new Executor.
func NewExecutor(pool *pgxpool.Pool, maxRows int, timeout time.Duration) *Executor {
	return &Executor{pool: pool, maxRows: maxRows, timeout: timeout}
}

// WithRole makes every query run as the given database role. An empty role
// keeps the pool's own.
func (e *Executor) WithRole(role string) *Executor {
	e.role = role
	return e
}

// Run executes sql and returns at most maxRows rows.
func (e *Executor) Run(ctx context.Context, sql string) (*Result, error) {
	res := &Result{Columns: []string{}, Rows: [][]any{}}

	err := database.WithTx(ctx, e.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		timeout := fmt.Sprintf("SET LOCAL statement_timeout = %d", e.timeout.Milliseconds())
		if _, err := tx.Exec(ctx, timeout); err != nil {
			return fmt.Errorf("setting statement timeout: %w", err)
		}
		if e.role != "" {
			if _, err := tx.Exec(ctx, "SET LOCAL ROLE "+pgx.Identifier{e.role}.Sanitize()); err != nil {
				return fmt.Errorf("switching to role %s: %w", e.role, err)
			}
		}

		rows, err := tx.Query(ctx, sql)
		if err != nil {
			return fmt.Errorf("running query: %w", err)
		}
		defer rows.Close()

		for _, fd := range rows.FieldDescriptions() {
			res.Columns = append(res.Columns, fd.Name)
		}
		for rows.Next() {
			if len(res.Rows) == e.maxRows {
				res.Truncated = true
				break
			}
			values, err := rows.Values()
			if err != nil {
				return fmt.Errorf("reading row: %w", err)
			}
			for i, v := range values {
				values[i] = plainValue(v)
			}
			res.Rows = append(res.Rows, values)
		}
		rows.Close()
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// plainValue converts driver-specific values into JSON-friendly ones.
func plainValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Interval:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("%d months %d days %s", val.Months, val.Days,
			time.Duration(val.Microseconds)*time.Microsecond)
	default:
		return v
	}
}
