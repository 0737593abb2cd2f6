package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotificationNotFound is returned when a notification does not exist or
// belongs to another user.
var ErrNotificationNotFound = errors.New("notification not found")

// Repository persists notifications.
type Repository interface {
	// Create stores the notifications and publishes each on Channel when the
	// transaction commits.
	Create(ctx context.Context, ns []Notification) error
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	// SentSince lists the users of userIDs who received a notification of
	// kind at or after since.
	SentSince(ctx context.Context, userIDs []uuid.UUID, kind string, since time.Time) (map[uuid.UUID]bool, error)
}
