package handler

import (
	"errors"
	"net/http"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/api/validation"
	"github.com/syncup/syncup/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
	User      userResponse `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthHandler handles login and the caller's own account.
type AuthHandler struct {
	authService *auth.Service
	userRepo    auth.UserRepository
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service, userRepo auth.UserRepository) *AuthHandler {
	return &AuthHandler{authService: authService, userRepo: userRepo}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req loginRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateLoginRequest(validation.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	}), requestID) {
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", requestID)
			return
		}
		internalError(w, "log in", err, requestID)
		return
	}

	response.Success(w, http.StatusOK, sessionResponse{
		Token:     session.Token,
		ExpiresAt: formatTime(session.ExpiresAt),
		User:      toUserResponse(session.User),
	}, requestID)
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	u, err := h.userRepo.GetByID(r.Context(), identity.CompanyID, identity.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
			return
		}
		internalError(w, "get user", err, requestID, "id", identity.UserID)
		return
	}

	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// ChangePassword handles POST /me/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req changePasswordRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateChangePasswordRequest(validation.ChangePasswordRequest{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}), requestID) {
		return
	}

	if err := h.authService.ChangePassword(r.Context(), identity, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
				[]validation.FieldError{{Field: "currentPassword", Message: "currentPassword is incorrect"}}, requestID)
			return
		}
		internalError(w, "change password", err, requestID, "id", identity.UserID)
		return
	}

	response.NoContent(w)
}
