package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Listener forwards NOTIFY payloads from Channel into a Hub. It holds one
// pooled connection for as long as it runs.
type Listener struct {
	pool    *pgxpool.Pool
	hub     *Hub
	channel string
	retry   time.Duration
}

// NewListener creates a Listener on Channel.
func NewListener(pool *pgxpool.Pool, hub *Hub) *Listener {
	return &Listener{
		pool:    pool,
		hub:     hub,
		channel: Channel,
		retry:   5 * time.Second,
	}
}

// Run listens until ctx is cancelled, reconnecting after connection errors.
func (l *Listener) Run(ctx context.Context) {
	slog.Info("notification listener started", "channel", l.channel)

	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			slog.Info("notification listener stopped")
			return
		}
		slog.Warn("notification listener disconnected", "error", err, "retryIn", l.retry)

		select {
		case <-ctx.Done():
			slog.Info("notification listener stopped")
			return
		case <-time.After(l.retry):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listening on %s: %w", l.channel, err)
	}
	defer func() {
		// The connection returns to the pool and must not keep receiving.
		unlistenCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(unlistenCtx, "UNLISTEN *")
	}()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}

		var e Event
		if err := json.Unmarshal([]byte(n.Payload), &e); err != nil {
			slog.Warn("discarding malformed notification payload", "error", err)
			continue
		}
		l.hub.Publish(e)
	}
}
