package project

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrProjectNotFound is returned when a project record is not found.
var ErrProjectNotFound = errors.New("project not found")

// ErrDuplicateProjectName is returned when the company already has a project with the same name.
var ErrDuplicateProjectName = errors.New("project name already exists")

// ErrUserNotFound is returned when assigning a user that is not part of the company.
var ErrUserNotFound = errors.New("user not found")

// Repository provides operations on projects and their assignments.
type Repository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*Project, error)
	List(ctx context.Context, companyID uuid.UUID, filter Filter) ([]Project, error)
	Update(ctx context.Context, companyID, id uuid.UUID, upd Update) (*Project, error)
	Assign(ctx context.Context, companyID, projectID, userID uuid.UUID) error
	Unassign(ctx context.Context, companyID, projectID, userID uuid.UUID) error
	Members(ctx context.Context, companyID, projectID uuid.UUID) ([]Member, error)
	IsAssigned(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
}
