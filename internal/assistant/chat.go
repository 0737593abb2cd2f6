package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a user's chat history.
type Message struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"-"`
	UserID    uuid.UUID `json:"-"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	SQL       string    `json:"sql,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatRepository stores chat history in the chat_messages table.
type ChatRepository interface {
	Append(ctx context.Context, m *Message) error
	// Recent returns the user's latest limit messages, oldest first.
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]Message, error)
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
}

// PostgresChatRepository implements ChatRepository using pgxpool.
type PostgresChatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository creates a new ChatRepository backed by the given connection pool.
func NewChatRepository(pool *pgxpool.Pool) ChatRepository {
	return &PostgresChatRepository{pool: pool}
}

// Append stores a message.
func (r *PostgresChatRepository) Append(ctx context.Context, m *Message) error {
	var sql *string
	if m.SQL != "" {
		sql = &m.SQL
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (company_id, user_id, role, content, sql_query)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		m.CompanyID, m.UserID, m.Role, m.Content, sql,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}
	return nil
}

// Recent returns the latest messages of the user in chronological order.
func (r *PostgresChatRepository) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, user_id, role, content, COALESCE(sql_query, ''), created_at
		FROM (
			SELECT * FROM chat_messages
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing chat messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.UserID, &m.Role, &m.Content, &m.SQL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chat message rows: %w", err)
	}
	return msgs, nil
}

// Clear deletes the user's history and returns the number of messages removed.
func (r *PostgresChatRepository) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM chat_messages WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing chat messages: %w", err)
	}
	return result.RowsAffected(), nil
}
