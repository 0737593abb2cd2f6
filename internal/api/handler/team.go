package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/api/validation"
	"github.com/syncup/syncup/internal/team"
)

type teamRequest struct {
	Name string `json:"name"`
}

type teamResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toTeamResponse(t *team.Team) teamResponse {
	return teamResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		MemberCount: t.MemberCount,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

// TeamHandler handles team CRUD endpoints.
type TeamHandler struct {
	repo team.Repository
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(repo team.Repository) *TeamHandler {
	return &TeamHandler{repo: repo}
}

// Create handles POST /teams.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req teamRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateTeamRequest(validation.TeamRequest{Name: req.Name}), requestID) {
		return
	}

	t := &team.Team{
		CompanyID: identity.CompanyID,
		Name:      strings.TrimSpace(req.Name),
	}

	if err := h.repo.Create(r.Context(), t); err != nil {
		if errors.Is(err, team.ErrDuplicateTeamName) {
			response.Err(w, http.StatusConflict, "DUPLICATE_NAME", fmt.Sprintf("A team named %q already exists", t.Name), requestID)
			return
		}
		internalError(w, "create team", err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toTeamResponse(t), requestID)
}

// List handles GET /teams.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	teams, err := h.repo.List(r.Context(), identity.CompanyID)
	if err != nil {
		internalError(w, "list teams", err, requestID)
		return
	}

	items := make([]teamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, toTeamResponse(&teams[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Rename handles PATCH /teams/{id}.
func (h *TeamHandler) Rename(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req teamRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateTeamRequest(validation.TeamRequest{Name: req.Name}), requestID) {
		return
	}

	name := strings.TrimSpace(req.Name)
	t, err := h.repo.Rename(r.Context(), identity.CompanyID, id, name)
	if err != nil {
		switch {
		case errors.Is(err, team.ErrTeamNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Team not found", requestID)
		case errors.Is(err, team.ErrDuplicateTeamName):
			response.Err(w, http.StatusConflict, "DUPLICATE_NAME", fmt.Sprintf("A team named %q already exists", name), requestID)
		default:
			internalError(w, "rename team", err, requestID, "id", id)
		}
		return
	}

	response.Success(w, http.StatusOK, toTeamResponse(t), requestID)
}

// Delete handles DELETE /teams/{id}.
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), identity.CompanyID, id); err != nil {
		if errors.Is(err, team.ErrTeamNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Team not found", requestID)
			return
		}
		if errors.Is(err, team.ErrTeamHasUsers) {
			response.Err(w, http.StatusConflict, "TEAM_HAS_USERS", "Cannot delete team with active users", requestID)
			return
		}
		internalError(w, "delete team", err, requestID, "id", id)
		return
	}

	response.NoContent(w)
}
