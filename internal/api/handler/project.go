package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/api/validation"
	"github.com/syncup/syncup/internal/project"
)

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type assignRequest struct {
	UserID string `json:"userId"`
}

type projectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	MemberCount int    `json:"memberCount"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type memberResponse struct {
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	AssignedAt string `json:"assignedAt"`
}

func toProjectResponse(p *project.Project) projectResponse {
	return projectResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		MemberCount: p.MemberCount,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

// ProjectHandler handles projects and their member assignments. Members only
// see the projects they are assigned to.
type ProjectHandler struct {
	projects *project.Service
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects *project.Service) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// Create handles POST /projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req createProjectRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateCreateProjectRequest(validation.CreateProjectRequest{
		Name:        req.Name,
		Description: req.Description,
	}), requestID) {
		return
	}

	p := &project.Project{
		CompanyID:   identity.CompanyID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Status:      project.StatusActive,
	}
	if err := h.projects.Repo().Create(r.Context(), p); err != nil {
		writeProjectError(w, err, "create project", p.Name, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toProjectResponse(p), requestID)
}

// List handles GET /projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	status := r.URL.Query().Get("status")
	if status != "" && validationFailed(w, validation.ValidateUpdateProjectRequest(validation.UpdateProjectRequest{Status: &status}), requestID) {
		return
	}

	projects, err := h.projects.List(r.Context(), identity, status)
	if err != nil {
		internalError(w, "list projects", err, requestID)
		return
	}

	items := make([]projectResponse, 0, len(projects))
	for i := range projects {
		items = append(items, toProjectResponse(&projects[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// GetByID handles GET /projects/{id}.
func (h *ProjectHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	p, err := h.projects.Get(r.Context(), identity, id)
	if err != nil {
		writeProjectError(w, err, "get project", "", requestID)
		return
	}

	response.Success(w, http.StatusOK, toProjectResponse(p), requestID)
}

// Update handles PATCH /projects/{id}. Setting status to archived archives the project.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req updateProjectRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateUpdateProjectRequest(validation.UpdateProjectRequest{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	}), requestID) {
		return
	}

	upd := project.Update{Description: req.Description, Status: req.Status}
	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		upd.Name = &name
	}

	p, err := h.projects.Repo().Update(r.Context(), identity.CompanyID, id, upd)
	if err != nil {
		writeProjectError(w, err, "update project", name, requestID)
		return
	}

	response.Success(w, http.StatusOK, toProjectResponse(p), requestID)
}

// Members handles GET /projects/{id}/members.
func (h *ProjectHandler) Members(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	if _, err := h.projects.Get(r.Context(), identity, id); err != nil {
		writeProjectError(w, err, "list members", "", requestID)
		return
	}

	members, err := h.projects.Repo().Members(r.Context(), identity.CompanyID, id)
	if err != nil {
		internalError(w, "list members", err, requestID, "projectId", id)
		return
	}

	items := make([]memberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, memberResponse{
			UserID:     m.UserID.String(),
			Name:       m.Name,
			Email:      m.Email,
			Role:       m.Role,
			AssignedAt: formatTime(m.AssignedAt),
		})
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Assign handles POST /projects/{id}/members.
func (h *ProjectHandler) Assign(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req assignRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateAssignRequest(validation.AssignRequest{UserID: req.UserID}), requestID) {
		return
	}

	if err := h.projects.Repo().Assign(r.Context(), identity.CompanyID, id, uuid.MustParse(req.UserID)); err != nil {
		writeProjectError(w, err, "assign member", "", requestID)
		return
	}

	response.NoContent(w)
}

// Unassign handles DELETE /projects/{id}/members/{userId}.
func (h *ProjectHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}
	userID, ok := urlID(w, r, "userId", requestID)
	if !ok {
		return
	}

	if err := h.projects.Repo().Unassign(r.Context(), identity.CompanyID, id, userID); err != nil {
		writeProjectError(w, err, "unassign member", "", requestID)
		return
	}

	response.NoContent(w)
}

func writeProjectError(w http.ResponseWriter, err error, action, name, requestID string) {
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Project not found", requestID)
	case errors.Is(err, project.ErrUserNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
	case errors.Is(err, project.ErrDuplicateProjectName):
		response.Err(w, http.StatusConflict, "DUPLICATE_NAME", fmt.Sprintf("A project named %q already exists", name), requestID)
	default:
		internalError(w, action, err, requestID)
	}
}
