package announcement

import (
	"time"

	"github.com/google/uuid"
)

const (
	PriorityNormal    = "normal"
	PriorityImportant = "important"
	PriorityUrgent    = "urgent"
)

// Priorities lists the accepted priorities.
var Priorities = []string{PriorityNormal, PriorityImportant, PriorityUrgent}

// Announcement represents a row in the announcements table. A nil TeamID
// addresses the whole company.
type Announcement struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	TeamID     *uuid.UUID
	AuthorID   uuid.UUID
	AuthorName string // read-only, joined from users
	Title      string
	Content    string
	Priority   string
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	Read       bool // read-only, per caller
}

// Active reports whether the announcement has not expired at now.
func (a *Announcement) Active(now time.Time) bool {
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}

// Audience identifies the reader of announcements: a user and the team they
// belong to.
type Audience struct {
	CompanyID uuid.UUID
	UserID    uuid.UUID
	TeamID    *uuid.UUID
}
