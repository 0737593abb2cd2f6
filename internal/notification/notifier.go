package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Message is the content of a notification sent to one or more users.
type Message struct {
	Kind  string
	Title string
	Body  string
	Link  string
}

// Sender delivers a Message to users. Notifier implements it.
type Sender interface {
	Notify(ctx context.Context, companyID uuid.UUID, userIDs []uuid.UUID, msg Message) error
}

// Notifier creates notifications for users of a company.
type Notifier struct {
	repo Repository
}

// NewNotifier creates a new Notifier.
func NewNotifier(repo Repository) *Notifier {
	return &Notifier{repo: repo}
}

// Notify stores msg for every user in userIDs.
func (n *Notifier) Notify(ctx context.Context, companyID uuid.UUID, userIDs []uuid.UUID, msg Message) error {
	if len(userIDs) == 0 {
		return nil
	}

	ns := make([]Notification, len(userIDs))
	for i, userID := range userIDs {
		ns[i] = Notification{
			CompanyID: companyID,
			UserID:    userID,
			Kind:      msg.Kind,
			Title:     msg.Title,
			Body:      msg.Body,
			Link:      msg.Link,
		}
	}

	if err := n.repo.Create(ctx, ns); err != nil {
		return fmt.Errorf("notifying %d users: %w", len(userIDs), err)
	}
	return nil
}
