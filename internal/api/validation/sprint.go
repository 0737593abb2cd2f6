package validation

import (
	"github.com/syncup/syncup/internal/sprint"
)

// CreateSprintRequest mirrors the fields needed for create sprint validation.
type CreateSprintRequest struct {
	Name      string
	Goal      string
	StartDate string
	EndDate   string
}

// ValidateCreateSprintRequest validates the fields of a create sprint request.
func ValidateCreateSprintRequest(req CreateSprintRequest) []FieldError {
	errs := requiredText(nil, "name", req.Name, 255)
	errs = maxText(errs, "goal", req.Goal, 2000)

	errs, start, okStart := requiredDate(errs, "startDate", req.StartDate)
	errs, end, okEnd := requiredDate(errs, "endDate", req.EndDate)
	if okStart && okEnd && start.After(end) {
		errs = append(errs, FieldError{Field: "endDate", Message: "endDate must not be before startDate"})
	}
	return errs
}

// UpdateSprintRequest mirrors the fields of a partial sprint update.
type UpdateSprintRequest struct {
	Name      *string
	Goal      *string
	StartDate *string
	EndDate   *string
}

// ValidateUpdateSprintRequest validates only non-nil fields on an update request.
func ValidateUpdateSprintRequest(req UpdateSprintRequest) []FieldError {
	var errs []FieldError
	if req.Name != nil {
		errs = requiredText(errs, "name", *req.Name, 255)
	}
	if req.Goal != nil {
		errs = maxText(errs, "goal", *req.Goal, 2000)
	}
	errs = optionalDate(errs, "startDate", req.StartDate)
	errs = optionalDate(errs, "endDate", req.EndDate)
	return errs
}

// CreateTaskRequest mirrors the fields needed for create task validation.
type CreateTaskRequest struct {
	ProjectID   string
	SprintID    *string
	Title       string
	Description string
	Status      string
	Priority    string
	StoryPoints int
	AssigneeID  *string
	DueDate     *string
}

// ValidateCreateTaskRequest validates the fields of a create task request.
func ValidateCreateTaskRequest(req CreateTaskRequest) []FieldError {
	var errs []FieldError
	if req.ProjectID == "" {
		errs = append(errs, FieldError{Field: "projectId", Message: "projectId is required"})
	} else {
		errs = optionalUUID(errs, "projectId", &req.ProjectID)
	}
	errs = optionalUUID(errs, "sprintId", req.SprintID)
	errs = requiredText(errs, "title", req.Title, 255)
	errs = maxText(errs, "description", req.Description, 10000)
	if req.Status != "" {
		errs = oneOf(errs, "status", req.Status, sprint.TaskStatuses)
	}
	if req.Priority != "" {
		errs = oneOf(errs, "priority", req.Priority, sprint.TaskPriorities)
	}
	errs = storyPoints(errs, req.StoryPoints)
	errs = optionalUUID(errs, "assigneeId", req.AssigneeID)
	errs = optionalDate(errs, "dueDate", req.DueDate)
	return errs
}

// UpdateTaskRequest mirrors the fields of a partial task update.
type UpdateTaskRequest struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	StoryPoints *int
	SprintID    *string
	AssigneeID  *string
	DueDate     *string
}

// ValidateUpdateTaskRequest validates only non-nil fields on an update request.
// Empty sprintId and assigneeId clear the field.
func ValidateUpdateTaskRequest(req UpdateTaskRequest) []FieldError {
	var errs []FieldError
	if req.Title != nil {
		errs = requiredText(errs, "title", *req.Title, 255)
	}
	if req.Description != nil {
		errs = maxText(errs, "description", *req.Description, 10000)
	}
	if req.Status != nil {
		errs = oneOf(errs, "status", *req.Status, sprint.TaskStatuses)
	}
	if req.Priority != nil {
		errs = oneOf(errs, "priority", *req.Priority, sprint.TaskPriorities)
	}
	if req.StoryPoints != nil {
		errs = storyPoints(errs, *req.StoryPoints)
	}
	errs = optionalUUID(errs, "sprintId", req.SprintID)
	errs = optionalUUID(errs, "assigneeId", req.AssigneeID)
	errs = optionalDate(errs, "dueDate", req.DueDate)
	return errs
}

func storyPoints(errs []FieldError, points int) []FieldError {
	if points < 0 || points > 100 {
		return append(errs, FieldError{Field: "storyPoints", Message: "storyPoints must be between 0 and 100"})
	}
	return errs
}
