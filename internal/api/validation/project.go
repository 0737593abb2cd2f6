package validation

import "github.com/syncup/syncup/internal/project"

var projectStatuses = []string{project.StatusActive, project.StatusArchived}

// CreateProjectRequest mirrors the fields needed for create project validation.
type CreateProjectRequest struct {
	Name        string
	Description string
}

// ValidateCreateProjectRequest validates the fields of a create project request.
func ValidateCreateProjectRequest(req CreateProjectRequest) []FieldError {
	errs := requiredText(nil, "name", req.Name, 255)
	return maxText(errs, "description", req.Description, 5000)
}

// UpdateProjectRequest mirrors the fields of a partial project update.
type UpdateProjectRequest struct {
	Name        *string
	Description *string
	Status      *string
}

// ValidateUpdateProjectRequest validates only non-nil fields on an update request.
func ValidateUpdateProjectRequest(req UpdateProjectRequest) []FieldError {
	var errs []FieldError
	if req.Name != nil {
		errs = requiredText(errs, "name", *req.Name, 255)
	}
	if req.Description != nil {
		errs = maxText(errs, "description", *req.Description, 5000)
	}
	if req.Status != nil {
		errs = oneOf(errs, "status", *req.Status, projectStatuses)
	}
	return errs
}

// AssignRequest mirrors the fields of a project assignment.
type AssignRequest struct {
	UserID string
}

// ValidateAssignRequest validates a project assignment.
func ValidateAssignRequest(req AssignRequest) []FieldError {
	if req.UserID == "" {
		return []FieldError{{Field: "userId", Message: "userId is required"}}
	}
	return optionalUUID(nil, "userId", &req.UserID)
}
