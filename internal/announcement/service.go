package announcement

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/auth"
	"github.com/syncup/syncup/internal/notification"
)

var (
	// ErrInvalidPriority is returned for an unknown priority.
	ErrInvalidPriority = errors.New("invalid announcement priority")
	// ErrAlreadyExpired is returned when the expiry lies in the past.
	ErrAlreadyExpired = errors.New("announcement expiry must be in the future")
	// ErrNotAuthor is returned when a non-admin deletes someone else's announcement.
	ErrNotAuthor = errors.New("only the author or an admin can delete an announcement")
)

// Draft is the input for a new announcement.
type Draft struct {
	TeamID    *uuid.UUID
	Title     string
	Content   string
	Priority  string
	ExpiresAt *time.Time
}

// Service implements announcement publishing and reading.
type Service struct {
	repo     Repository
	notifier notification.Sender
	now      func() time.Time
}

// NewService creates a new announcement Service.
func NewService(repo Repository, notifier notification.Sender) *Service {
	return &Service{repo: repo, notifier: notifier, now: time.Now}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// AudienceOf returns the reader context of an identity.
func AudienceOf(id *auth.Identity) Audience {
	return Audience{CompanyID: id.CompanyID, UserID: id.UserID, TeamID: id.TeamID}
}

// Create publishes an announcement and notifies its audience, the author excluded.
func (s *Service) Create(ctx context.Context, author *auth.Identity, d Draft) (*Announcement, error) {
	if d.Priority == "" {
		d.Priority = PriorityNormal
	}
	if !slices.Contains(Priorities, d.Priority) {
		return nil, ErrInvalidPriority
	}
	if d.ExpiresAt != nil && !d.ExpiresAt.After(s.now()) {
		return nil, ErrAlreadyExpired
	}

	a := &Announcement{
		CompanyID:  author.CompanyID,
		TeamID:     d.TeamID,
		AuthorID:   author.UserID,
		AuthorName: author.Name,
		Title:      strings.TrimSpace(d.Title),
		Content:    strings.TrimSpace(d.Content),
		Priority:   d.Priority,
		ExpiresAt:  d.ExpiresAt,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	recipients, err := s.repo.Recipients(ctx, a.CompanyID, a.TeamID)
	if err != nil {
		slog.Warn("failed to collect announcement recipients", "announcementId", a.ID, "error", err)
		return a, nil
	}
	recipients = slices.DeleteFunc(recipients, func(id uuid.UUID) bool { return id == author.UserID })

	msg := notification.Message{
		Kind:  notification.KindAnnouncement,
		Title: a.Title,
		Body:  author.Name + " posted a " + a.Priority + " announcement",
		Link:  "/announcements",
	}
	if err := s.notifier.Notify(ctx, a.CompanyID, recipients, msg); err != nil {
		slog.Warn("failed to send notification", "kind", msg.Kind, "announcementId", a.ID, "error", err)
	}
	return a, nil
}

// List returns the active announcements visible to the caller.
func (s *Service) List(ctx context.Context, id *auth.Identity) ([]Announcement, error) {
	return s.repo.ListActive(ctx, AudienceOf(id), s.now())
}

// MarkRead marks an announcement as read by the caller.
func (s *Service) MarkRead(ctx context.Context, id *auth.Identity, announcementID uuid.UUID) error {
	return s.repo.MarkRead(ctx, AudienceOf(id), announcementID)
}

// UnreadCount counts the caller's unread active announcements.
func (s *Service) UnreadCount(ctx context.Context, id *auth.Identity) (int, error) {
	return s.repo.UnreadCount(ctx, AudienceOf(id), s.now())
}

// Delete removes an announcement. Admins may delete any announcement,
// others only their own.
func (s *Service) Delete(ctx context.Context, id *auth.Identity, announcementID uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, id.CompanyID, announcementID)
	if err != nil {
		return err
	}
	if a.AuthorID != id.UserID && id.Role != auth.RoleAdmin {
		return ErrNotAuthor
	}
	return s.repo.Delete(ctx, id.CompanyID, announcementID)
}
