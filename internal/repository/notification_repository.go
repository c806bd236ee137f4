package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/mymess-backend/internal/model"
)

// NotificationRepo stores inbox messages in the notifications table.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notificationColumns = `id, recipient_email, sender_email, sender_name, title, message,
	notification_type, related_entity_id, is_read, created_at`

// Create inserts a notification. The caller assigns ID and CreatedAt.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	const q = `INSERT INTO notifications (` + notificationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		n.ID, n.RecipientEmail, n.SenderEmail, emptyNull(n.SenderName), n.Title, n.Message,
		n.Type, n.RelatedEntityID, n.Read, n.CreatedAt,
	)
	return err
}

func scanNotification(s rowScanner) (*model.Notification, error) {
	var (
		n          model.Notification
		senderName sql.NullString
	)
	if err := s.Scan(
		&n.ID, &n.RecipientEmail, &n.SenderEmail, &senderName, &n.Title, &n.Message,
		&n.Type, &n.RelatedEntityID, &n.Read, &n.CreatedAt,
	); err != nil {
		return nil, err
	}
	n.SenderName = senderName.String
	n.CreatedAt = n.CreatedAt.UTC()
	return &n, nil
}

// GetByID loads one notification or returns ErrNotFound.
func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

// List returns the recipient's notifications, newest first.
func (r *NotificationRepo) List(ctx context.Context, f NotificationFilter) ([]model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_email = ?`
	if f.UnreadOnly {
		q += ` AND is_read = FALSE`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, f.RecipientEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// CountUnread returns how many unread messages the recipient has.
func (r *NotificationRepo) CountUnread(ctx context.Context, recipient string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_email = ? AND is_read = FALSE`, recipient).Scan(&n)
	return n, err
}

// MarkRead flags one message as read. ErrNotFound is returned when the id
// does not exist.
func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	// is_read is not part of the predicate so re-marking still finds the row.
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// MarkAllRead flags every unread message for the recipient and returns
// how many were changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, recipient string) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_email = ? AND is_read = FALSE`, recipient)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// Delete removes one message. ErrNotFound is returned when no row matched.
func (r *NotificationRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every message of the recipient and returns how many
// were deleted.
func (r *NotificationRepo) DeleteAll(ctx context.Context, recipient string) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE recipient_email = ?`, recipient)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}
