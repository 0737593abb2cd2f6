package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "syncup"

// ErrInvalidCredentials is returned when an email/password pair does not match an active user.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidToken is returned for malformed, expired or revoked session tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the JWT payload of a session token. The subject is the user id.
type Claims struct {
	CompanyID string `json:"cid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

// NewUser holds the input for creating a user. An empty Password is replaced
// by a generated one.
type NewUser struct {
	Email    string
	Name     string
	Role     string
	TeamID   *uuid.UUID
	Password string
}

// Service provides authentication and user management operations.
type Service struct {
	users      UserRepository
	secret     []byte
	ttl        time.Duration
	bcryptCost int
	now        func() time.Time
}

// NewService creates a new auth Service.
func NewService(users UserRepository, secret string, ttl time.Duration, bcryptCost int) *Service {
	return &Service{
		users:      users,
		secret:     []byte(secret),
		ttl:        ttl,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// HashPassword bcrypt-hashes a plaintext password.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// GeneratePassword returns a random 16 character URL-safe password.
func GeneratePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Login verifies the credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if !u.Active() {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.IssueToken(u)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// IssueToken signs an HS256 session token for u.
func (s *Service) IssueToken(u *User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		CompanyID: u.CompanyID.String(),
		Role:      u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken verifies the signature and expiry of a session token.
func (s *Service) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Authenticate resolves a bearer token to the Identity of an active user.
// Role and team are read from the database so changes apply immediately.
func (s *Service) Authenticate(ctx context.Context, raw string) (*Identity, error) {
	claims, err := s.ParseToken(raw)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	companyID, err := uuid.Parse(claims.CompanyID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, companyID, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if !u.Active() {
		return nil, ErrInvalidToken
	}

	return IdentityFor(u), nil
}

// CreateUser adds a user to the company. It returns the generated password
// when in.Password is empty, otherwise an empty string.
func (s *Service) CreateUser(ctx context.Context, companyID uuid.UUID, in NewUser) (*User, string, error) {
	password := in.Password
	generated := ""
	if password == "" {
		var err error
		if password, err = GeneratePassword(); err != nil {
			return nil, "", err
		}
		generated = password
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	u := &User{
		CompanyID:    companyID,
		TeamID:       in.TeamID,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", err
	}

	slog.Info("user created", "userId", u.ID, "companyId", companyID, "role", u.Role)
	return u, generated, nil
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, id *Identity, current, next string) error {
	u, err := s.users.GetByID(ctx, id.CompanyID, id.UserID)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, u.ID, hash)
}

// Bootstrap creates the first company and its admin when no users exist.
// It returns the generated admin password, or an empty string when users
// already exist.
func (s *Service) Bootstrap(ctx context.Context, companyName, adminEmail string) (string, error) {
	count, err := s.users.CountAll(ctx)
	if err != nil {
		return "", err
	}
	if count > 0 {
		return "", nil
	}

	password, err := GeneratePassword()
	if err != nil {
		return "", err
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return "", err
	}

	company := &Company{Name: companyName}
	admin := &User{
		Email:        strings.ToLower(adminEmail),
		Name:         "Administrator",
		Role:         RoleAdmin,
		PasswordHash: hash,
	}
	if err := s.users.CreateCompanyWithAdmin(ctx, company, admin); err != nil {
		return "", fmt.Errorf("creating bootstrap admin: %w", err)
	}

	slog.Info("bootstrap admin created", "email", admin.Email, "companyId", company.ID)
	return password, nil
}

// SetClock overrides the time source used for token issue and expiry checks.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
