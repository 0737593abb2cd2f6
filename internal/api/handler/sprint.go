package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/api/validation"
	"github.com/syncup/syncup/internal/auth"
	"github.com/syncup/syncup/internal/project"
	"github.com/syncup/syncup/internal/sprint"
	"github.com/syncup/syncup/internal/sprintmetrics"
)

type createSprintRequest struct {
	Name      string `json:"name"`
	Goal      string `json:"goal"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type updateSprintRequest struct {
	Name      *string `json:"name"`
	Goal      *string `json:"goal"`
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
}

type sprintResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Goal      string `json:"goal"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type healthResponse struct {
	Score          int    `json:"score"`
	Label          string `json:"label"`
	TimeProgress   int    `json:"timeProgress"`
	CompletionRate int    `json:"completionRate"`
	OverdueTasks   int    `json:"overdueTasks"`
	InReviewTasks  int    `json:"inReviewTasks"`
}

type summaryResponse struct {
	Progress       int            `json:"progress"`
	CompletionRate int            `json:"completionRate"`
	Health         healthResponse `json:"health"`
	Velocity       int            `json:"velocity"`
	Capacity       int            `json:"capacity"`
	RemainingDays  int            `json:"remainingDays"`
	TotalTasks     int            `json:"totalTasks"`
	TaskCounts     map[string]int `json:"taskCounts"`
	PointsByStatus map[string]int `json:"pointsByStatus"`
}

type sprintDetailResponse struct {
	sprintResponse
	Summary summaryResponse `json:"summary"`
}

type completeSprintResponse struct {
	sprintResponse
	MovedToBacklog int `json:"movedToBacklog"`
}

type burndownPointResponse struct {
	Date   string  `json:"date"`
	Ideal  float64 `json:"ideal"`
	Actual *int    `json:"actual"`
}

func toSprintResponse(s *sprint.Sprint) sprintResponse {
	return sprintResponse{
		ID:        s.ID.String(),
		ProjectID: s.ProjectID.String(),
		Name:      s.Name,
		Goal:      s.Goal,
		StartDate: formatDate(s.StartDate),
		EndDate:   formatDate(s.EndDate),
		Status:    s.Status,
		CreatedAt: formatTime(s.CreatedAt),
		UpdatedAt: formatTime(s.UpdatedAt),
	}
}

func toSummaryResponse(s sprintmetrics.Summary) summaryResponse {
	return summaryResponse{
		Progress:       s.Progress,
		CompletionRate: s.CompletionRate,
		Health: healthResponse{
			Score:          s.Health.Score,
			Label:          s.Health.Label,
			TimeProgress:   s.Health.TimeProgress,
			CompletionRate: s.Health.CompletionRate,
			OverdueTasks:   s.Health.OverdueTasks,
			InReviewTasks:  s.Health.InReviewTasks,
		},
		Velocity:       s.Velocity,
		Capacity:       s.Capacity,
		RemainingDays:  s.RemainingDays,
		TotalTasks:     s.TotalTasks,
		TaskCounts:     s.TaskCounts,
		PointsByStatus: s.PointsByStatus,
	}
}

// SprintHandler handles sprints and their metrics. Lifecycle changes need a
// manager or admin; reads need access to the sprint's project.
type SprintHandler struct {
	sprints  *sprint.Service
	projects *project.Service
	now      func() time.Time
}

// NewSprintHandler creates a new SprintHandler.
func NewSprintHandler(sprints *sprint.Service, projects *project.Service) *SprintHandler {
	return &SprintHandler{sprints: sprints, projects: projects, now: time.Now}
}

// SetClock overrides the time metrics are computed at.
func (h *SprintHandler) SetClock(now func() time.Time) {
	h.now = now
}

// ListByProject handles GET /projects/{id}/sprints.
func (h *SprintHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	projectID, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}
	if _, err := h.projects.Get(r.Context(), identity, projectID); err != nil {
		writeProjectError(w, err, "list sprints", "", requestID)
		return
	}

	sprints, err := h.sprints.Repo().ListSprints(r.Context(), identity.CompanyID, projectID)
	if err != nil {
		internalError(w, "list sprints", err, requestID, "projectId", projectID)
		return
	}

	items := make([]sprintResponse, 0, len(sprints))
	for i := range sprints {
		items = append(items, toSprintResponse(&sprints[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Create handles POST /projects/{id}/sprints. New sprints start in Planning.
func (h *SprintHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	projectID, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req createSprintRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateCreateSprintRequest(validation.CreateSprintRequest{
		Name:      req.Name,
		Goal:      req.Goal,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}), requestID) {
		return
	}

	s := &sprint.Sprint{
		CompanyID: identity.CompanyID,
		ProjectID: projectID,
		Name:      strings.TrimSpace(req.Name),
		Goal:      req.Goal,
		StartDate: parseDate(req.StartDate),
		EndDate:   parseDate(req.EndDate),
	}
	if err := h.sprints.Repo().CreateSprint(r.Context(), s); err != nil {
		if errors.Is(err, sprint.ErrSprintMismatch) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Project not found", requestID)
			return
		}
		internalError(w, "create sprint", err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toSprintResponse(s), requestID)
}

// GetByID handles GET /sprints/{id}. The response carries the sprint summary.
func (h *SprintHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	s, ok := h.visibleSprint(w, r, identity, requestID)
	if !ok {
		return
	}

	tasks, err := h.sprints.Repo().ListTasks(r.Context(), identity.CompanyID, sprint.TaskFilter{SprintID: &s.ID})
	if err != nil {
		internalError(w, "get sprint", err, requestID, "id", s.ID)
		return
	}

	response.Success(w, http.StatusOK, sprintDetailResponse{
		sprintResponse: toSprintResponse(s),
		Summary:        toSummaryResponse(sprintmetrics.Summarize(*s, tasks, h.now())),
	}, requestID)
}

// Burndown handles GET /sprints/{id}/burndown.
func (h *SprintHandler) Burndown(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	s, ok := h.visibleSprint(w, r, identity, requestID)
	if !ok {
		return
	}

	tasks, err := h.sprints.Repo().ListTasks(r.Context(), identity.CompanyID, sprint.TaskFilter{SprintID: &s.ID})
	if err != nil {
		internalError(w, "compute burndown", err, requestID, "id", s.ID)
		return
	}

	points := sprintmetrics.Burndown(*s, tasks, h.now())
	items := make([]burndownPointResponse, 0, len(points))
	for _, p := range points {
		items = append(items, burndownPointResponse{
			Date:   formatDate(p.Date),
			Ideal:  p.Ideal,
			Actual: p.Actual,
		})
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// Update handles PATCH /sprints/{id}.
func (h *SprintHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req updateSprintRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateUpdateSprintRequest(validation.UpdateSprintRequest{
		Name:      req.Name,
		Goal:      req.Goal,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}), requestID) {
		return
	}

	current, err := h.sprints.Repo().GetSprint(r.Context(), identity.CompanyID, id)
	if err != nil {
		writeSprintError(w, err, "update sprint", requestID)
		return
	}
	if current.Status == sprint.StatusCompleted {
		response.Err(w, http.StatusConflict, "INVALID_TRANSITION", "Completed sprints cannot be changed", requestID)
		return
	}

	upd := sprint.SprintUpdate{
		Goal:      req.Goal,
		StartDate: parseOptionalDate(req.StartDate),
		EndDate:   parseOptionalDate(req.EndDate),
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		upd.Name = &name
	}

	start, end := current.StartDate, current.EndDate
	if upd.StartDate != nil {
		start = *upd.StartDate
	}
	if upd.EndDate != nil {
		end = *upd.EndDate
	}
	if start.After(end) {
		validationFailed(w, []validation.FieldError{{Field: "endDate", Message: "endDate must not be before startDate"}}, requestID)
		return
	}

	s, err := h.sprints.Repo().UpdateSprint(r.Context(), identity.CompanyID, id, upd)
	if err != nil {
		writeSprintError(w, err, "update sprint", requestID)
		return
	}

	response.Success(w, http.StatusOK, toSprintResponse(s), requestID)
}

// Start handles POST /sprints/{id}/start.
func (h *SprintHandler) Start(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	s, err := h.sprints.StartSprint(r.Context(), identity.CompanyID, id)
	if err != nil {
		writeSprintError(w, err, "start sprint", requestID)
		return
	}

	response.Success(w, http.StatusOK, toSprintResponse(s), requestID)
}

// Complete handles POST /sprints/{id}/complete. Unfinished tasks return to the backlog.
func (h *SprintHandler) Complete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	s, moved, err := h.sprints.CompleteSprint(r.Context(), identity.CompanyID, id)
	if err != nil {
		writeSprintError(w, err, "complete sprint", requestID)
		return
	}

	response.Success(w, http.StatusOK, completeSprintResponse{
		sprintResponse: toSprintResponse(s),
		MovedToBacklog: moved,
	}, requestID)
}

// visibleSprint loads the {id} sprint and checks the caller may see its project.
func (h *SprintHandler) visibleSprint(w http.ResponseWriter, r *http.Request, identity *auth.Identity, requestID string) (*sprint.Sprint, bool) {
	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return nil, false
	}

	s, err := h.sprints.Repo().GetSprint(r.Context(), identity.CompanyID, id)
	if err != nil {
		writeSprintError(w, err, "get sprint", requestID)
		return nil, false
	}
	if err := h.projects.RequireAccess(r.Context(), identity, s.ProjectID); err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Sprint not found", requestID)
			return nil, false
		}
		internalError(w, "get sprint", err, requestID, "id", id)
		return nil, false
	}
	return s, true
}

func writeSprintError(w http.ResponseWriter, err error, action, requestID string) {
	switch {
	case errors.Is(err, sprint.ErrSprintNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Sprint not found", requestID)
	case errors.Is(err, sprint.ErrActiveSprintExists):
		response.Err(w, http.StatusConflict, "ACTIVE_SPRINT_EXISTS", "The project already has an active sprint", requestID)
	case errors.Is(err, sprint.ErrInvalidTransition):
		response.Err(w, http.StatusConflict, "INVALID_TRANSITION", "The sprint is not in a status that allows this", requestID)
	default:
		internalError(w, action, err, requestID)
	}
}
