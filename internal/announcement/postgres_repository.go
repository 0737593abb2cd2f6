package announcement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// visibleTo restricts announcements a to those addressed to the company or
// to the reader's team. $1 is the company, $2 the reader's team.
const visibleTo = `a.company_id = $1 AND (a.team_id IS NULL OR a.team_id = $2::uuid)`

func scanAnnouncement(row pgx.Row) (*Announcement, error) {
	var a Announcement
	err := row.Scan(&a.ID, &a.CompanyID, &a.TeamID, &a.AuthorID, &a.AuthorName, &a.Title,
		&a.Content, &a.Priority, &a.ExpiresAt, &a.CreatedAt, &a.Read)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAnnouncementNotFound
		}
		return nil, fmt.Errorf("scanning announcement row: %w", err)
	}
	return &a, nil
}

// Create inserts a new announcement. A team scope must be a team of the company.
func (r *PostgresRepository) Create(ctx context.Context, a *Announcement) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO announcements (company_id, team_id, author_id, title, content, priority, expires_at)
		SELECT $1::uuid, $2::uuid, $3::uuid, $4::text, $5::text, $6::text, $7::timestamptz
		WHERE $2::uuid IS NULL OR EXISTS (SELECT 1 FROM teams WHERE id = $2::uuid AND company_id = $1::uuid)
		RETURNING id, created_at`,
		a.CompanyID, a.TeamID, a.AuthorID, a.Title, a.Content, a.Priority, a.ExpiresAt,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnknownTeam
		}
		return fmt.Errorf("inserting announcement: %w", err)
	}
	return nil
}

// GetByID retrieves an announcement of the company.
func (r *PostgresRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*Announcement, error) {
	return scanAnnouncement(r.pool.QueryRow(ctx, `
		SELECT a.id, a.company_id, a.team_id, a.author_id, u.name, a.title, a.content,
		       a.priority, a.expires_at, a.created_at, false
		FROM announcements a
		JOIN users u ON u.id = a.author_id
		WHERE a.id = $1 AND a.company_id = $2`, id, companyID))
}

// ListActive returns unexpired announcements visible to aud.
func (r *PostgresRepository) ListActive(ctx context.Context, aud Audience, now time.Time) ([]Announcement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.company_id, a.team_id, a.author_id, u.name, a.title, a.content,
		       a.priority, a.expires_at, a.created_at, (ar.user_id IS NOT NULL)
		FROM announcements a
		JOIN users u ON u.id = a.author_id
		LEFT JOIN announcement_reads ar ON ar.announcement_id = a.id AND ar.user_id = $3
		WHERE `+visibleTo+` AND (a.expires_at IS NULL OR a.expires_at > $4)
		ORDER BY a.created_at DESC`,
		aud.CompanyID, aud.TeamID, aud.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("listing announcements: %w", err)
	}
	defer rows.Close()

	list := []Announcement{}
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating announcement rows: %w", err)
	}
	return list, nil
}

// MarkRead records a read of a visible announcement.
func (r *PostgresRepository) MarkRead(ctx context.Context, aud Audience, id uuid.UUID) error {
	var visible bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM announcements a WHERE `+visibleTo+` AND a.id = $3)`,
		aud.CompanyID, aud.TeamID, id,
	).Scan(&visible)
	if err != nil {
		return fmt.Errorf("checking announcement visibility: %w", err)
	}
	if !visible {
		return ErrAnnouncementNotFound
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO announcement_reads (announcement_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (announcement_id, user_id) DO NOTHING`, id, aud.UserID)
	if err != nil {
		return fmt.Errorf("marking announcement read: %w", err)
	}
	return nil
}

// UnreadCount counts unexpired visible announcements aud has not read.
func (r *PostgresRepository) UnreadCount(ctx context.Context, aud Audience, now time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM announcements a
		WHERE `+visibleTo+` AND (a.expires_at IS NULL OR a.expires_at > $4)
		  AND NOT EXISTS (
			SELECT 1 FROM announcement_reads ar
			WHERE ar.announcement_id = a.id AND ar.user_id = $3)`,
		aud.CompanyID, aud.TeamID, aud.UserID, now,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting unread announcements: %w", err)
	}
	return n, nil
}

// Delete removes an announcement and its read markers.
func (r *PostgresRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM announcements WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return fmt.Errorf("deleting announcement: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAnnouncementNotFound
	}
	return nil
}

// Recipients lists active users of the company or team.
func (r *PostgresRepository) Recipients(ctx context.Context, companyID uuid.UUID, teamID *uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM users
		WHERE company_id = $1 AND deactivated_at IS NULL
		  AND ($2::uuid IS NULL OR team_id = $2::uuid)`, companyID, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing announcement recipients: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collecting announcement recipients: %w", err)
	}
	return ids, nil
}
