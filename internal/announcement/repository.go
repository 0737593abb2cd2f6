package announcement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrAnnouncementNotFound is returned when an announcement is not found or not visible to the caller.
var ErrAnnouncementNotFound = errors.New("announcement not found")

// ErrUnknownTeam is returned when an announcement is scoped to a team outside the company.
var ErrUnknownTeam = errors.New("team does not exist")

// Repository provides operations on the announcements and announcement_reads tables.
type Repository interface {
	Create(ctx context.Context, a *Announcement) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*Announcement, error)
	// ListActive returns the announcements visible to aud at now, newest first,
	// with the reader's read flag.
	ListActive(ctx context.Context, aud Audience, now time.Time) ([]Announcement, error)
	// MarkRead records that aud read a visible announcement. Repeated calls are no-ops.
	MarkRead(ctx context.Context, aud Audience, id uuid.UUID) error
	UnreadCount(ctx context.Context, aud Audience, now time.Time) (int, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	// Recipients returns the active users of the company, or of teamID when set.
	Recipients(ctx context.Context, companyID uuid.UUID, teamID *uuid.UUID) ([]uuid.UUID, error)
}
