package sprint

import (
	"time"

	"github.com/google/uuid"
)

// Sprint lifecycle statuses.
const (
	StatusPlanning  = "Planning"
	StatusActive    = "Active"
	StatusCompleted = "Completed"
)

// Task statuses, in board order.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskDone       = "done"
)

// TaskStatuses lists every task status in board order.
var TaskStatuses = []string{TaskTodo, TaskInProgress, TaskReview, TaskDone}

// TaskPriorities lists the accepted task priorities.
var TaskPriorities = []string{"low", "medium", "high", "urgent"}

// Sprint represents a row in the sprints table. StartDate and EndDate are
// calendar dates at UTC midnight.
type Sprint struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	ProjectID uuid.UUID
	Name      string
	Goal      string
	StartDate time.Time
	EndDate   time.Time
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Task represents a row in the tasks table. A nil SprintID means the task is in the backlog.
type Task struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	ProjectID   uuid.UUID
	SprintID    *uuid.UUID
	Title       string
	Description string
	Status      string
	Priority    string
	StoryPoints int
	AssigneeID  *uuid.UUID
	DueDate     *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsDone reports whether the task is finished.
func (t *Task) IsDone() bool {
	return t.Status == TaskDone
}

// SprintUpdate holds optional fields for a partial sprint update.
// Nil fields are not updated.
type SprintUpdate struct {
	Name      *string
	Goal      *string
	StartDate *time.Time
	EndDate   *time.Time
}

// TaskUpdate holds optional fields for a partial task update.
// Nil fields are not updated; ClearSprint/ClearAssignee move the task to the
// backlog or unassign it.
type TaskUpdate struct {
	Title         *string
	Description   *string
	Status        *string
	Priority      *string
	StoryPoints   *int
	SprintID      *uuid.UUID
	ClearSprint   bool
	AssigneeID    *uuid.UUID
	ClearAssignee bool
	DueDate       *time.Time
}

// TaskFilter selects tasks for listing. Nil fields are ignored.
type TaskFilter struct {
	ProjectID  *uuid.UUID
	SprintID   *uuid.UUID
	Backlog    bool
	AssigneeID *uuid.UUID
	Status     *string
	OpenOnly   bool
}
