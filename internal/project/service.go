package project

import (
	"context"

	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/auth"
)

// Service applies role visibility on top of the Repository. Members only see
// projects they are assigned to; admins and managers see every project of
// their company.
type Service struct {
	repo Repository
}

// NewService creates a new project Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Repo exposes the underlying repository for unrestricted operations.
func (s *Service) Repo() Repository {
	return s.repo
}

// List returns the projects visible to id.
func (s *Service) List(ctx context.Context, id *auth.Identity, status string) ([]Project, error) {
	filter := Filter{Status: status}
	if !id.CanManage() {
		filter.AssignedTo = &id.UserID
	}
	return s.repo.List(ctx, id.CompanyID, filter)
}

// Get returns the project when it is visible to id, ErrProjectNotFound otherwise.
func (s *Service) Get(ctx context.Context, id *auth.Identity, projectID uuid.UUID) (*Project, error) {
	p, err := s.repo.GetByID(ctx, id.CompanyID, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.RequireAccess(ctx, id, projectID); err != nil {
		return nil, err
	}
	return p, nil
}

// RequireAccess returns ErrProjectNotFound when id may not see the project.
// It does not check that the project exists.
func (s *Service) RequireAccess(ctx context.Context, id *auth.Identity, projectID uuid.UUID) error {
	if id.CanManage() {
		return nil
	}
	assigned, err := s.repo.IsAssigned(ctx, projectID, id.UserID)
	if err != nil {
		return err
	}
	if !assigned {
		return ErrProjectNotFound
	}
	return nil
}

// VisibleIDs returns the ids of the projects visible to id.
func (s *Service) VisibleIDs(ctx context.Context, id *auth.Identity) ([]uuid.UUID, error) {
	projects, err := s.List(ctx, id, StatusActive)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	return ids, nil
}
