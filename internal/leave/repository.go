package leave

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPlanNotFound is returned when a leave plan is not found.
	ErrPlanNotFound = errors.New("leave plan not found")
	// ErrOverlap is returned when a request overlaps a pending or approved plan of the same user.
	ErrOverlap = errors.New("leave overlaps an existing request")
	// ErrNotCancellable is returned when the plan is no longer pending/approved or has already started.
	ErrNotCancellable = errors.New("leave can no longer be cancelled")
	// ErrAlreadyReviewed is returned when reviewing a plan that is not pending.
	ErrAlreadyReviewed = errors.New("leave has already been reviewed")
	// ErrOwnRequest is returned when a reviewer tries to review their own request.
	ErrOwnRequest = errors.New("cannot review your own leave request")
)

// Repository provides operations on the leave_plans table.
type Repository interface {
	// Create inserts a pending plan unless it overlaps the user's pending or approved plans.
	Create(ctx context.Context, p *Plan) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*Plan, error)
	List(ctx context.Context, companyID uuid.UUID, filter Filter) ([]Plan, error)
	// Cancel cancels the user's own plan if it is pending or approved and starts after today.
	Cancel(ctx context.Context, companyID, userID, id uuid.UUID, today time.Time) (*Plan, error)
	// Review sets a pending plan to approved or rejected.
	Review(ctx context.Context, companyID, id, reviewerID uuid.UUID, status string) (*Plan, error)
}
