package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/api/validation"
	"github.com/syncup/syncup/internal/auth"
	"github.com/syncup/syncup/internal/project"
	"github.com/syncup/syncup/internal/sprint"
)

type createTaskRequest struct {
	ProjectID   string  `json:"projectId"`
	SprintID    *string `json:"sprintId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	StoryPoints int     `json:"storyPoints"`
	AssigneeID  *string `json:"assigneeId"`
	DueDate     *string `json:"dueDate"`
}

// updateTaskRequest treats an empty sprintId or assigneeId as a clear.
type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	StoryPoints *int    `json:"storyPoints"`
	SprintID    *string `json:"sprintId"`
	AssigneeID  *string `json:"assigneeId"`
	DueDate     *string `json:"dueDate"`
}

type taskResponse struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"projectId"`
	SprintID    *string `json:"sprintId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	StoryPoints int     `json:"storyPoints"`
	AssigneeID  *string `json:"assigneeId"`
	DueDate     *string `json:"dueDate"`
	CompletedAt *string `json:"completedAt"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func toTaskResponse(t *sprint.Task) taskResponse {
	return taskResponse{
		ID:          t.ID.String(),
		ProjectID:   t.ProjectID.String(),
		SprintID:    uuidString(t.SprintID),
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		StoryPoints: t.StoryPoints,
		AssigneeID:  uuidString(t.AssigneeID),
		DueDate:     formatDatePtr(t.DueDate),
		CompletedAt: formatTimePtr(t.CompletedAt),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

func toTaskResponses(tasks []sprint.Task) []taskResponse {
	items := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, toTaskResponse(&tasks[i]))
	}
	return items
}

// TaskHandler handles tasks. Every operation needs access to the task's project.
type TaskHandler struct {
	sprints  *sprint.Service
	projects *project.Service
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(sprints *sprint.Service, projects *project.Service) *TaskHandler {
	return &TaskHandler{sprints: sprints, projects: projects}
}

// List handles GET /tasks. Without projectId or sprintId, members only list
// tasks assigned to themselves.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())
	q := r.URL.Query()

	var fieldErrors []validation.FieldError
	projectID, errs := queryUUID(r, "projectId")
	fieldErrors = append(fieldErrors, errs...)
	sprintID, errs := queryUUID(r, "sprintId")
	fieldErrors = append(fieldErrors, errs...)
	assigneeID, errs := queryUUID(r, "assigneeId")
	fieldErrors = append(fieldErrors, errs...)

	filter := sprint.TaskFilter{
		ProjectID:  projectID,
		SprintID:   sprintID,
		AssigneeID: assigneeID,
		Backlog:    q.Get("backlog") == "true",
		OpenOnly:   q.Get("open") == "true",
	}
	if status := q.Get("status"); status != "" {
		fieldErrors = append(fieldErrors, validation.ValidateUpdateTaskRequest(validation.UpdateTaskRequest{Status: &status})...)
		filter.Status = &status
	}
	if q.Get("mine") == "true" {
		filter.AssigneeID = &identity.UserID
	}
	if validationFailed(w, fieldErrors, requestID) {
		return
	}

	if filter.SprintID != nil {
		s, err := h.sprints.Repo().GetSprint(r.Context(), identity.CompanyID, *filter.SprintID)
		if err != nil {
			writeSprintError(w, err, "list tasks", requestID)
			return
		}
		filter.ProjectID = &s.ProjectID
	}

	switch {
	case filter.ProjectID != nil:
		if !h.requireProject(w, r, identity, *filter.ProjectID, requestID) {
			return
		}
	case !identity.CanManage():
		if filter.AssigneeID != nil && *filter.AssigneeID != identity.UserID {
			validationFailed(w, []validation.FieldError{{Field: "projectId", Message: "projectId is required to list tasks of other users"}}, requestID)
			return
		}
		filter.AssigneeID = &identity.UserID
	}

	tasks, err := h.sprints.Repo().ListTasks(r.Context(), identity.CompanyID, filter)
	if err != nil {
		internalError(w, "list tasks", err, requestID)
		return
	}

	items := toTaskResponses(tasks)
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req createTaskRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateCreateTaskRequest(validation.CreateTaskRequest{
		ProjectID:   req.ProjectID,
		SprintID:    req.SprintID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		StoryPoints: req.StoryPoints,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	}), requestID) {
		return
	}

	projectID := uuid.MustParse(req.ProjectID)
	if !h.requireProject(w, r, identity, projectID, requestID) {
		return
	}

	t := &sprint.Task{
		CompanyID:   identity.CompanyID,
		ProjectID:   projectID,
		SprintID:    parseOptionalUUID(req.SprintID),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		StoryPoints: req.StoryPoints,
		AssigneeID:  parseOptionalUUID(req.AssigneeID),
		DueDate:     parseOptionalDate(req.DueDate),
	}
	if err := h.sprints.CreateTask(r.Context(), identity.UserID, t); err != nil {
		writeTaskError(w, err, "create task", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toTaskResponse(t), requestID)
}

// GetByID handles GET /tasks/{id}.
func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	t, ok := h.visibleTask(w, r, identity, requestID)
	if !ok {
		return
	}

	response.Success(w, http.StatusOK, toTaskResponse(t), requestID)
}

// Update handles PATCH /tasks/{id}. Moving a task to done stamps its
// completion time; moving it out of done clears it.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	current, ok := h.visibleTask(w, r, identity, requestID)
	if !ok {
		return
	}

	var req updateTaskRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateUpdateTaskRequest(validation.UpdateTaskRequest{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		StoryPoints: req.StoryPoints,
		SprintID:    req.SprintID,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	}), requestID) {
		return
	}

	upd := sprint.TaskUpdate{
		Description:   req.Description,
		Status:        req.Status,
		Priority:      req.Priority,
		StoryPoints:   req.StoryPoints,
		SprintID:      parseOptionalUUID(req.SprintID),
		ClearSprint:   req.SprintID != nil && *req.SprintID == "",
		AssigneeID:    parseOptionalUUID(req.AssigneeID),
		ClearAssignee: req.AssigneeID != nil && *req.AssigneeID == "",
		DueDate:       parseOptionalDate(req.DueDate),
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		upd.Title = &title
	}

	t, err := h.sprints.UpdateTask(r.Context(), identity.UserID, identity.CompanyID, current.ID, upd)
	if err != nil {
		writeTaskError(w, err, "update task", requestID)
		return
	}

	response.Success(w, http.StatusOK, toTaskResponse(t), requestID)
}

// Delete handles DELETE /tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	t, ok := h.visibleTask(w, r, identity, requestID)
	if !ok {
		return
	}

	if err := h.sprints.Repo().DeleteTask(r.Context(), identity.CompanyID, t.ID); err != nil {
		writeTaskError(w, err, "delete task", requestID)
		return
	}

	response.NoContent(w)
}

func (h *TaskHandler) requireProject(w http.ResponseWriter, r *http.Request, identity *auth.Identity, projectID uuid.UUID, requestID string) bool {
	if _, err := h.projects.Get(r.Context(), identity, projectID); err != nil {
		writeProjectError(w, err, "check project access", "", requestID)
		return false
	}
	return true
}

func (h *TaskHandler) visibleTask(w http.ResponseWriter, r *http.Request, identity *auth.Identity, requestID string) (*sprint.Task, bool) {
	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return nil, false
	}

	t, err := h.sprints.Repo().GetTask(r.Context(), identity.CompanyID, id)
	if err != nil {
		writeTaskError(w, err, "get task", requestID)
		return nil, false
	}
	if err := h.projects.RequireAccess(r.Context(), identity, t.ProjectID); err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Task not found", requestID)
			return nil, false
		}
		internalError(w, "get task", err, requestID, "id", id)
		return nil, false
	}
	return t, true
}

func writeTaskError(w http.ResponseWriter, err error, action, requestID string) {
	switch {
	case errors.Is(err, sprint.ErrTaskNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Task not found", requestID)
	case errors.Is(err, sprint.ErrSprintMismatch):
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "sprintId", Message: "sprintId must reference an open sprint of the task's project"}}, requestID)
	case errors.Is(err, sprint.ErrInvalidAssignee):
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "assigneeId", Message: "assigneeId must reference an active user of your company"}}, requestID)
	default:
		internalError(w, action, err, requestID)
	}
}
