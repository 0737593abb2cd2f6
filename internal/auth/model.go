package auth

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)

// Roles lists every assignable user role.
var Roles = []string{RoleAdmin, RoleManager, RoleMember}

// Company represents a row in the companies table. Every other entity belongs to one.
type Company struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// User represents a row in the users table.
type User struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	TeamID        *uuid.UUID
	Email         string
	Name          string
	Role          string
	PasswordHash  string
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

// Active reports whether the user can still sign in.
func (u *User) Active() bool {
	return u.DeactivatedAt == nil
}

// Identity is stored in the request context after authentication.
type Identity struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	TeamID    *uuid.UUID
	Name      string
	Email     string
	Role      string
}

// HasRole reports whether the identity holds one of roles.
func (i *Identity) HasRole(roles ...string) bool {
	return slices.Contains(roles, i.Role)
}

// CanManage reports whether the identity is an admin or manager.
func (i *Identity) CanManage() bool {
	return i.HasRole(RoleAdmin, RoleManager)
}

// IdentityFor builds the Identity of an authenticated user.
func IdentityFor(u *User) *Identity {
	return &Identity{
		UserID:    u.ID,
		CompanyID: u.CompanyID,
		TeamID:    u.TeamID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
	}
}

// UserFilter narrows List results.
type UserFilter struct {
	TeamID             *uuid.UUID
	Role               string
	IncludeDeactivated bool
}

// UserUpdate holds the mutable user fields. Nil pointers are left unchanged.
type UserUpdate struct {
	Name      *string
	Role      *string
	TeamID    *uuid.UUID
	ClearTeam bool
}
