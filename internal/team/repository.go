package team

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrTeamNotFound is returned when a team record is not found.
var ErrTeamNotFound = errors.New("team not found")

// ErrDuplicateTeamName is returned when the company already has a team with the same name.
var ErrDuplicateTeamName = errors.New("team name already exists")

// ErrTeamHasUsers is returned when attempting to delete a team that still has users.
var ErrTeamHasUsers = errors.New("team has users")

// Repository provides CRUD operations on the teams table, scoped to a company.
type Repository interface {
	Create(ctx context.Context, team *Team) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*Team, error)
	List(ctx context.Context, companyID uuid.UUID) ([]Team, error)
	Rename(ctx context.Context, companyID, id uuid.UUID, name string) (*Team, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}
