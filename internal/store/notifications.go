package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"trackline/tracker-service/internal/model"
)

// InsertNotification writes one notification row. Dedup happens upstream
// in the reminder job (Redis SETNX), not here.
func (s *Store) InsertNotification(ctx context.Context, n model.Notification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, application_id, kind, message)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), n.UserID, n.ApplicationID, n.Kind, n.Message,
	)
	if err != nil {
		return fmt.Errorf("insertNotification: %w", err)
	}
	return nil
}

// ListNotifications returns the user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, application_id, kind, message, created_at, read_at
		 FROM notifications WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listNotifications query: %w", err)
	}
	defer rows.Close()

	notifs := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ApplicationID, &n.Kind, &n.Message, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("listNotifications scan: %w", err)
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// MarkNotificationRead stamps read_at on one notification.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, notifID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		notifID, userID,
	)
	if err != nil {
		return fmt.Errorf("markNotificationRead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
