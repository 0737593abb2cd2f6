package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/notification"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
	streamHeartbeat          = 25 * time.Second
)

type notificationResponse struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Link      string  `json:"link"`
	ReadAt    *string `json:"readAt"`
	CreatedAt string  `json:"createdAt"`
}

type markAllReadResponse struct {
	Updated int64 `json:"updated"`
}

func toNotificationResponse(n *notification.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID.String(),
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		Link:      n.Link,
		ReadAt:    formatTimePtr(n.ReadAt),
		CreatedAt: formatTime(n.CreatedAt),
	}
}

// NotificationHandler serves the caller's notifications, stored and realtime.
type NotificationHandler struct {
	repo      notification.Repository
	hub       *notification.Hub
	heartbeat time.Duration
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(repo notification.Repository, hub *notification.Hub) *NotificationHandler {
	return &NotificationHandler{repo: repo, hub: hub, heartbeat: streamHeartbeat}
}

// SetHeartbeat overrides the interval of keep-alive comments on the stream.
func (h *NotificationHandler) SetHeartbeat(d time.Duration) {
	h.heartbeat = d
}

// List handles GET /notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	limit, fieldErrors := queryInt(r, "limit", defaultNotificationLimit, maxNotificationLimit)
	if validationFailed(w, fieldErrors, requestID) {
		return
	}

	list, err := h.repo.List(r.Context(), identity.UserID, r.URL.Query().Get("unread") == "true", limit)
	if err != nil {
		internalError(w, "list notifications", err, requestID)
		return
	}

	items := make([]notificationResponse, 0, len(list))
	for i := range list {
		items = append(items, toNotificationResponse(&list[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// UnreadCount handles GET /notifications/unread-count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	n, err := h.repo.UnreadCount(r.Context(), identity.UserID)
	if err != nil {
		internalError(w, "count notifications", err, requestID)
		return
	}

	response.Success(w, http.StatusOK, countResponse{Count: n}, requestID)
}

// MarkRead handles POST /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	if err := h.repo.MarkRead(r.Context(), identity.UserID, id); err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Notification not found", requestID)
			return
		}
		internalError(w, "mark notification read", err, requestID, "id", id)
		return
	}

	response.NoContent(w)
}

// MarkAllRead handles POST /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	n, err := h.repo.MarkAllRead(r.Context(), identity.UserID)
	if err != nil {
		internalError(w, "mark notifications read", err, requestID)
		return
	}

	response.Success(w, http.StatusOK, markAllReadResponse{Updated: n}, requestID)
}

// Stream handles GET /notifications/stream as server-sent events. Each event
// is a JSON notification; comment lines keep idle connections open.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	rc := http.NewResponseController(w)

	// The server write timeout does not apply to a long-lived stream.
	_ = rc.SetWriteDeadline(time.Time{})

	events := h.hub.Subscribe(r.Context(), identity.UserID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "retry: 5000\n\n")
	if err := rc.Flush(); err != nil {
		slog.Error("streaming not supported", "error", err)
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(e)
			if err != nil {
				slog.Error("failed to encode notification event", "error", err, "id", e.ID)
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: notification\ndata: %s\n\n", e.ID, payload)
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
