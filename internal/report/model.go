package report

import (
	"time"

	"github.com/google/uuid"
)

// Report represents a row in the daily_reports table. ReportDate is a
// calendar date at UTC midnight.
type Report struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	UserID     uuid.UUID
	UserName   string // read-only, joined from users
	ReportDate time.Time
	Yesterday  string
	Today      string
	Blockers   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasBlockers reports whether the author listed any blocker.
func (r *Report) HasBlockers() bool {
	return r.Blockers != ""
}

// Missing is an active user without a report for a given day.
type Missing struct {
	CompanyID uuid.UUID
	UserID    uuid.UUID
	Name      string
	Email     string
	TeamID    *uuid.UUID
}

// Filter narrows report listings. Zero values are ignored.
type Filter struct {
	From         time.Time
	To           time.Time
	UserID       *uuid.UUID
	TeamID       *uuid.UUID
	BlockersOnly bool
}
