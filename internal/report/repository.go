package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrReportNotFound is returned when a report record is not found.
var ErrReportNotFound = errors.New("report not found")

// Repository provides operations on the daily_reports table.
type Repository interface {
	// Upsert creates the author's report for the day or replaces its content.
	Upsert(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*Report, error)
	List(ctx context.Context, companyID uuid.UUID, filter Filter) ([]Report, error)
	// Missing lists the company's active users without a report for day.
	Missing(ctx context.Context, companyID uuid.UUID, day time.Time, teamID *uuid.UUID) ([]Missing, error)
	// MissingAll lists active users of every company without a report for day.
	MissingAll(ctx context.Context, day time.Time) ([]Missing, error)
}
