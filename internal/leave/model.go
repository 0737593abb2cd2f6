package leave

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// Types lists the accepted leave types.
var Types = []string{"vacation", "sick", "personal", "remote", "other"}

// Statuses lists every leave status.
var Statuses = []string{StatusPending, StatusApproved, StatusRejected, StatusCancelled}

// Plan represents a row in the leave_plans table. StartDate and EndDate are
// inclusive calendar dates at UTC midnight.
type Plan struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	UserID     uuid.UUID
	UserName   string // read-only, joined from users
	StartDate  time.Time
	EndDate    time.Time
	Type       string
	Reason     string
	Status     string
	ReviewedBy *uuid.UUID
	ReviewedAt *time.Time
	CreatedAt  time.Time
}

// Covers reports whether day falls within the plan.
func (p *Plan) Covers(day time.Time) bool {
	return !day.Before(p.StartDate) && !day.After(p.EndDate)
}

// Days returns the number of calendar days of the plan.
func (p *Plan) Days() int {
	return int(p.EndDate.Sub(p.StartDate).Hours()/24) + 1
}

// Filter narrows List results. Zero values are ignored; From/To select plans
// overlapping the range.
type Filter struct {
	UserID *uuid.UUID
	Status string
	From   time.Time
	To     time.Time
}
