package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned when another user already uses the email address.
var ErrDuplicateEmail = errors.New("email already in use")

// ErrUnknownTeam is returned when a user references a team that does not exist.
var ErrUnknownTeam = errors.New("team does not exist")

// ErrDuplicateCompany is returned when a company with the same name already exists.
var ErrDuplicateCompany = errors.New("company name already exists")

// UserRepository provides operations on the users and companies tables.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, companyID uuid.UUID, filter UserFilter) ([]User, error)
	Update(ctx context.Context, companyID, id uuid.UUID, upd UserUpdate) (*User, error)
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	Deactivate(ctx context.Context, companyID, id uuid.UUID) error
	CountAll(ctx context.Context) (int, error)
	CreateCompanyWithAdmin(ctx context.Context, company *Company, admin *User) error
}
