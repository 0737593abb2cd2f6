package validation

import (
	"strings"

	"github.com/syncup/syncup/internal/auth"
)

const minPasswordLength = 8

// LoginRequest mirrors the fields of a login request.
type LoginRequest struct {
	Email    string
	Password string
}

// ValidateLoginRequest validates the fields of a login request.
func ValidateLoginRequest(req LoginRequest) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(req.Email) == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	}
	if req.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	}
	return errs
}

// CreateUserRequest mirrors the fields needed for create user validation.
type CreateUserRequest struct {
	Email    string
	Name     string
	Role     string
	TeamID   *string
	Password string
}

// ValidateCreateUserRequest validates the fields of a create user request.
func ValidateCreateUserRequest(req CreateUserRequest) []FieldError {
	var errs []FieldError

	email := strings.TrimSpace(req.Email)
	if email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	} else if !validEmail(email) {
		errs = append(errs, FieldError{Field: "email", Message: "email must be a valid address"})
	}

	errs = requiredText(errs, "name", req.Name, 255)

	if req.Role == "" {
		errs = append(errs, FieldError{Field: "role", Message: "role is required"})
	} else {
		errs = oneOf(errs, "role", req.Role, auth.Roles)
	}

	errs = optionalUUID(errs, "teamId", req.TeamID)

	if req.Password != "" && len(req.Password) < minPasswordLength {
		errs = append(errs, FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}

	return errs
}

// UpdateUserRequest mirrors the fields of a partial user update. Nil fields are not validated.
type UpdateUserRequest struct {
	Name   *string
	Role   *string
	TeamID *string
}

// ValidateUpdateUserRequest validates only non-nil fields on an update request.
func ValidateUpdateUserRequest(req UpdateUserRequest) []FieldError {
	var errs []FieldError
	if req.Name != nil {
		errs = requiredText(errs, "name", *req.Name, 255)
	}
	if req.Role != nil {
		errs = oneOf(errs, "role", *req.Role, auth.Roles)
	}
	errs = optionalUUID(errs, "teamId", req.TeamID)
	return errs
}

// ChangePasswordRequest mirrors the fields of a password change.
type ChangePasswordRequest struct {
	CurrentPassword string
	NewPassword     string
}

// ValidateChangePasswordRequest validates a password change.
func ValidateChangePasswordRequest(req ChangePasswordRequest) []FieldError {
	var errs []FieldError
	if req.CurrentPassword == "" {
		errs = append(errs, FieldError{Field: "currentPassword", Message: "currentPassword is required"})
	}
	if len(req.NewPassword) < minPasswordLength {
		errs = append(errs, FieldError{Field: "newPassword", Message: "newPassword must be at least 8 characters"})
	} else if len(req.NewPassword) > 72 {
		errs = append(errs, FieldError{Field: "newPassword", Message: "newPassword must be at most 72 bytes"})
	}
	return errs
}
