package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribeworks/backend/internal/models"
)

// Repository handles notification persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert writes a notification row.
func (r *Repository) Insert(ctx context.Context, n *models.Notification) error {
	const q = `INSERT INTO notifications (id, sender_id, recipient_id, kind, title, body, project_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, n.SenderID, n.RecipientID, n.Kind, n.Title, n.Body, n.ProjectID).
		Scan(&n.ID, &n.CreatedAt)
}

// ListForRecipient returns the recipient's notifications, newest first.
func (r *Repository) ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	q := `SELECT id, sender_id, recipient_id, kind, title, body, project_id, read_at, created_at
		FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		q += ` AND read_at IS NULL`
	}
	q += ` ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.SenderID, &n.RecipientID, &n.Kind, &n.Title, &n.Body,
			&n.ProjectID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// CountUnread returns the recipient's unread count.
func (r *Repository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read_at IS NULL`
	var n int
	err := r.pool.QueryRow(ctx, q, recipientID).Scan(&n)
	return n, err
}

// MarkRead sets read_at for the recipient's notification. Returns false
// when no unread row matched.
func (r *Repository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (bool, error) {
	const q = `UPDATE notifications SET read_at = NOW() WHERE id = $1 AND recipient_id = $2 AND read_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, id, recipientID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkAllRead sets read_at on every unread row for the recipient and
// returns how many were updated.
func (r *Repository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	const q = `UPDATE notifications SET read_at = NOW() WHERE recipient_id = $1 AND read_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, recipientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
