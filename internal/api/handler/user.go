package handler

import (
	"errors"
	"net/http"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/api/validation"
	"github.com/syncup/syncup/internal/auth"
)

type createUserRequest struct {
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	TeamID   *string `json:"teamId"`
	Password string  `json:"password"`
}

type updateUserRequest struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	TeamID *string `json:"teamId"`
}

type userResponse struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	TeamID        *string `json:"teamId"`
	CreatedAt     string  `json:"createdAt"`
	DeactivatedAt *string `json:"deactivatedAt,omitempty"`
}

type createdUserResponse struct {
	userResponse
	// Password is only present when it was generated.
	Password string `json:"password,omitempty"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:            u.ID.String(),
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		TeamID:        uuidString(u.TeamID),
		CreatedAt:     formatTime(u.CreatedAt),
		DeactivatedAt: formatTimePtr(u.DeactivatedAt),
	}
}

// UserHandler handles the company user directory. Writes are admin only.
type UserHandler struct {
	authService *auth.Service
	userRepo    auth.UserRepository
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(authService *auth.Service, userRepo auth.UserRepository) *UserHandler {
	return &UserHandler{authService: authService, userRepo: userRepo}
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req createUserRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateCreateUserRequest(validation.CreateUserRequest{
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.Role,
		TeamID:   req.TeamID,
		Password: req.Password,
	}), requestID) {
		return
	}

	u, generated, err := h.authService.CreateUser(r.Context(), identity.CompanyID, auth.NewUser{
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.Role,
		TeamID:   parseOptionalUUID(req.TeamID),
		Password: req.Password,
	})
	if err != nil {
		writeUserError(w, err, "create user", requestID)
		return
	}

	response.Success(w, http.StatusCreated, createdUserResponse{
		userResponse: toUserResponse(u),
		Password:     generated,
	}, requestID)
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	teamID, fieldErrors := queryUUID(r, "teamId")
	role := r.URL.Query().Get("role")
	if role != "" {
		fieldErrors = append(fieldErrors, validation.ValidateUpdateUserRequest(validation.UpdateUserRequest{Role: &role})...)
	}
	if validationFailed(w, fieldErrors, requestID) {
		return
	}

	users, err := h.userRepo.List(r.Context(), identity.CompanyID, auth.UserFilter{
		TeamID:             teamID,
		Role:               role,
		IncludeDeactivated: r.URL.Query().Get("includeDeactivated") == "true",
	})
	if err != nil {
		internalError(w, "list users", err, requestID)
		return
	}

	items := make([]userResponse, 0, len(users))
	for i := range users {
		items = append(items, toUserResponse(&users[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// GetByID handles GET /users/{id}.
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	u, err := h.userRepo.GetByID(r.Context(), identity.CompanyID, id)
	if err != nil {
		writeUserError(w, err, "get user", requestID)
		return
	}

	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// Update handles PATCH /users/{id}. An empty teamId removes the user from their team.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req updateUserRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateUpdateUserRequest(validation.UpdateUserRequest{
		Name:   req.Name,
		Role:   req.Role,
		TeamID: req.TeamID,
	}), requestID) {
		return
	}

	if id == identity.UserID && req.Role != nil && *req.Role != identity.Role {
		response.Err(w, http.StatusConflict, "CONFLICT", "You cannot change your own role", requestID)
		return
	}

	upd := auth.UserUpdate{
		Name:   req.Name,
		Role:   req.Role,
		TeamID: parseOptionalUUID(req.TeamID),
	}
	if req.TeamID != nil && *req.TeamID == "" {
		upd.ClearTeam = true
	}

	u, err := h.userRepo.Update(r.Context(), identity.CompanyID, id, upd)
	if err != nil {
		writeUserError(w, err, "update user", requestID)
		return
	}

	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// Deactivate handles DELETE /users/{id}. Deactivated users keep their history
// but can no longer sign in.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}
	if id == identity.UserID {
		response.Err(w, http.StatusConflict, "CONFLICT", "You cannot deactivate yourself", requestID)
		return
	}

	if err := h.userRepo.Deactivate(r.Context(), identity.CompanyID, id); err != nil {
		writeUserError(w, err, "deactivate user", requestID)
		return
	}

	response.NoContent(w)
}

func writeUserError(w http.ResponseWriter, err error, action, requestID string) {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
	case errors.Is(err, auth.ErrDuplicateEmail):
		response.Err(w, http.StatusConflict, "DUPLICATE_EMAIL", "A user with this email already exists", requestID)
	case errors.Is(err, auth.ErrUnknownTeam):
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "teamId", Message: "teamId does not reference a team of your company"}}, requestID)
	default:
		internalError(w, action, err, requestID)
	}
}
