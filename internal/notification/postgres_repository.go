package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syncup/syncup/internal/database"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts all notifications in one transaction. NOTIFY payloads are
// delivered by Postgres only once the transaction commits.
func (r *PostgresRepository) Create(ctx context.Context, ns []Notification) error {
	if len(ns) == 0 {
		return nil
	}

	return database.WithTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for i := range ns {
			n := &ns[i]
			err := tx.QueryRow(ctx, `
				INSERT INTO notifications (company_id, user_id, kind, title, body, link)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id, created_at`,
				n.CompanyID, n.UserID, n.Kind, n.Title, n.Body, n.Link,
			).Scan(&n.ID, &n.CreatedAt)
			if err != nil {
				return fmt.Errorf("inserting notification: %w", err)
			}

			payload, err := EncodeEvent(n)
			if err != nil {
				return fmt.Errorf("encoding notification event: %w", err)
			}
			if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, Channel, string(payload)); err != nil {
				return fmt.Errorf("publishing notification: %w", err)
			}
		}
		return nil
	})
}

// List returns the user's most recent notifications, newest first.
func (r *PostgresRepository) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]Notification, error) {
	query := `
		SELECT id, company_id, user_id, kind, title, body, link, read_at, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = false OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	ns := []Notification{}
	for rows.Next() {
		var n Notification
		err := rows.Scan(&n.ID, &n.CompanyID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.Link,
			&n.ReadAt, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		ns = append(ns, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notification rows: %w", err)
	}
	return ns, nil
}

// MarkRead sets read_at on one of the user's notifications.
func (r *PostgresRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	var readAt time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE notifications
		SET read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2
		RETURNING read_at`, id, userID,
	).Scan(&readAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read and
// returns how many changed.
func (r *PostgresRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return result.RowsAffected(), nil
}

// UnreadCount returns the number of unread notifications of the user.
func (r *PostgresRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// SentSince reports which of userIDs already received a notification of kind since the given time.
func (r *PostgresRepository) SentSince(ctx context.Context, userIDs []uuid.UUID, kind string, since time.Time) (map[uuid.UUID]bool, error) {
	sent := make(map[uuid.UUID]bool)
	if len(userIDs) == 0 {
		return sent, nil
	}

	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}

	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT user_id
		FROM notifications
		WHERE user_id = ANY($1::uuid[]) AND kind = $2 AND created_at >= $3`,
		ids, kind, since)
	if err != nil {
		return nil, fmt.Errorf("querying sent notifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		sent[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user ids: %w", err)
	}
	return sent, nil
}
