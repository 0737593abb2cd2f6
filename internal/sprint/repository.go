package sprint

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSprintNotFound is returned when a sprint record is not found.
	ErrSprintNotFound = errors.New("sprint not found")
	// ErrTaskNotFound is returned when a task record is not found.
	ErrTaskNotFound = errors.New("task not found")
	// ErrActiveSprintExists is returned when starting a sprint in a project that already has an active one.
	ErrActiveSprintExists = errors.New("project already has an active sprint")
	// ErrInvalidTransition is returned when a sprint is not in the status the operation requires.
	ErrInvalidTransition = errors.New("invalid sprint status transition")
	// ErrSprintMismatch is returned when a task is put into a sprint of another project or a completed sprint.
	ErrSprintMismatch = errors.New("sprint does not accept tasks of this project")
	// ErrInvalidAssignee is returned when the assignee is not an active user of the company.
	ErrInvalidAssignee = errors.New("assignee is not an active user of the company")
)

// Repository provides operations on the sprints and tasks tables.
type Repository interface {
	CreateSprint(ctx context.Context, s *Sprint) error
	GetSprint(ctx context.Context, companyID, id uuid.UUID) (*Sprint, error)
	ListSprints(ctx context.Context, companyID, projectID uuid.UUID) ([]Sprint, error)
	ListActiveSprints(ctx context.Context, companyID uuid.UUID, projectIDs []uuid.UUID) ([]Sprint, error)
	UpdateSprint(ctx context.Context, companyID, id uuid.UUID, upd SprintUpdate) (*Sprint, error)
	// StartSprint moves a Planning sprint to Active.
	StartSprint(ctx context.Context, companyID, id uuid.UUID) (*Sprint, error)
	// CompleteSprint moves an Active sprint to Completed and returns its
	// unfinished tasks to the backlog. It reports how many tasks moved.
	CompleteSprint(ctx context.Context, companyID, id uuid.UUID) (*Sprint, int, error)
	// EndedSprints lists Active sprints of every company whose end date is before day.
	EndedSprints(ctx context.Context, day time.Time) ([]Sprint, error)
	// StartableSprints lists Planning sprints of every company whose start
	// date is on or before day and whose project has no Active sprint.
	StartableSprints(ctx context.Context, day time.Time) ([]Sprint, error)

	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, companyID, id uuid.UUID) (*Task, error)
	ListTasks(ctx context.Context, companyID uuid.UUID, filter TaskFilter) ([]Task, error)
	UpdateTask(ctx context.Context, companyID, id uuid.UUID, upd TaskUpdate) (*Task, error)
	DeleteTask(ctx context.Context, companyID, id uuid.UUID) error
}
