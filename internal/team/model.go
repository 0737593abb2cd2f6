package team

import (
	"time"

	"github.com/google/uuid"
)

// Team represents a row in the teams table.
type Team struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Name        string
	MemberCount int // active users, read-only
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
