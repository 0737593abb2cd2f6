package notification

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Channel is the Postgres NOTIFY channel new notifications are published on.
const Channel = "syncup_notifications"

const (
	// Postgres rejects NOTIFY payloads of 8000 bytes or more.
	maxPayload   = 7900
	maxEventBody = 1000 // runes
)

// ErrPayloadTooLarge is returned when an event does not fit a NOTIFY payload
// even with an empty body.
var ErrPayloadTooLarge = errors.New("notification event exceeds the NOTIFY payload limit")

const (
	KindTaskAssigned    = "task_assigned"
	KindLeaveReviewed   = "leave_reviewed"
	KindAnnouncement    = "announcement"
	KindStandupReminder = "standup_reminder"
	KindSprintStarted   = "sprint_started"
	KindSprintCompleted = "sprint_completed"
)

// Notification represents a row in the notifications table.
type Notification struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	UserID    uuid.UUID
	Kind      string
	Title     string
	Body      string
	Link      string
	ReadAt    *time.Time
	CreatedAt time.Time
}

// Event is the NOTIFY payload and the server-sent event body.
type Event struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventOf converts a stored notification into its realtime event. Long
// bodies are cut to maxEventBody runes; the stored row keeps the full text.
func EventOf(n *Notification) Event {
	return Event{
		ID:        n.ID,
		UserID:    n.UserID,
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      truncate(n.Body, maxEventBody),
		Link:      n.Link,
		CreatedAt: n.CreatedAt,
	}
}

// EncodeEvent returns the NOTIFY payload for n. The body is shortened
// further until the payload fits.
func EncodeEvent(n *Notification) ([]byte, error) {
	e := EventOf(n)
	for {
		payload, err := encodeJSON(e)
		if err != nil {
			return nil, err
		}
		if len(payload) <= maxPayload {
			return payload, nil
		}
		if e.Body == "" {
			return nil, ErrPayloadTooLarge
		}
		runes := []rune(e.Body)
		e.Body = string(runes[:len(runes)/2])
	}
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
