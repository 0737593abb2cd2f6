package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Hub fans realtime events out to the subscribers of each user. Publish never
// blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[chan Event]struct{}
	buffer int
}

// NewHub creates a Hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[uuid.UUID]map[chan Event]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber for userID. The returned channel is closed
// once ctx is done.
func (h *Hub) Subscribe(ctx context.Context, userID uuid.UUID) <-chan Event {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan Event]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	context.AfterFunc(ctx, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[userID], ch)
		if len(h.subs[userID]) == 0 {
			delete(h.subs, userID)
		}
		close(ch)
	})

	return ch
}

// Publish delivers e to every subscriber of e.UserID.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[e.UserID] {
		select {
		case ch <- e:
		default:
			slog.Warn("dropping notification event for slow subscriber", "userId", e.UserID, "notificationId", e.ID)
		}
	}
}

// Subscribers returns the number of open subscriptions of userID.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
