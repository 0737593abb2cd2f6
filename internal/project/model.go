package project

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Project represents a row in the projects table.
type Project struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Name        string
	Description string
	Status      string
	MemberCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Member is a user assigned to a project.
type Member struct {
	UserID     uuid.UUID
	Name       string
	Email      string
	Role       string
	AssignedAt time.Time
}

// Update holds the mutable project fields. Nil pointers are left unchanged.
type Update struct {
	Name        *string
	Description *string
	Status      *string
}

// Filter narrows List results. A non-nil AssignedTo restricts the result to
// projects that user is assigned to.
type Filter struct {
	Status     string
	AssignedTo *uuid.UUID
}
