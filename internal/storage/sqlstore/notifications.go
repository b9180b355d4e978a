package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/receiptsplit/internal/models"
)

// CreateNotifications persists notifications in a single transaction.
func (s *Store) CreateNotifications(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, n := range notifications {
			if n.ID == "" {
				n.ID = uuid.New().String()
			}
			if n.CreatedAt.IsZero() {
				n.CreatedAt = now
			}
			n.CreatedAt = n.CreatedAt.Truncate(time.Microsecond)

			_, err := tx.ExecContext(ctx, s.q(
				`INSERT INTO notifications (id, recipient, type, from_name, expense_id, target, amount, unread, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				n.ID, n.Recipient, string(n.Type), n.From, n.ExpenseID, n.Target, n.Amount, n.Unread, n.CreatedAt.UnixMicro(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert notification: %w", err)
			}
		}
		return nil
	})
}

// ListNotifications returns up to limit notifications for recipient, newest first.
func (s *Store) ListNotifications(ctx context.Context, recipient string, limit int) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, recipient, type, from_name, expense_id, target, amount, unread, created_at
		 FROM notifications WHERE recipient = ?
		 ORDER BY created_at DESC, id LIMIT ?`),
		recipient, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var (
			n         models.Notification
			typ       string
			createdAt int64
		)
		if err := rows.Scan(&n.ID, &n.Recipient, &typ, &n.From, &n.ExpenseID, &n.Target, &n.Amount, &n.Unread, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = models.NotificationType(typ)
		n.CreatedAt = time.UnixMicro(createdAt).UTC()
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

// MarkNotificationsRead clears the unread flag on every notification of recipient.
func (s *Store) MarkNotificationsRead(ctx context.Context, recipient string) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(
		"UPDATE notifications SET unread = ? WHERE recipient = ? AND unread = ?"),
		false, recipient, true,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
