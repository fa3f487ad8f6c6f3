package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"trackline/tracker-service/internal/model"
)

// AddFollowUp records outreach on an application.
func (s *Store) AddFollowUp(ctx context.Context, userID, appID string, note *string, sentAt time.Time, next *time.Time) (model.FollowUp, error) {
	var f model.FollowUp
	err := s.pool.QueryRow(ctx,
		`INSERT INTO follow_ups (id, application_id, note, sent_at, next_follow_up)
		 SELECT $1, a.id, $3, $4, $5 FROM applications a WHERE a.id = $2 AND a.user_id = $6
		 RETURNING id, application_id, note, sent_at, next_follow_up, created_at`,
		uuid.NewString(), appID, note, sentAt, next, userID,
	).Scan(&f.ID, &f.ApplicationID, &f.Note, &f.SentAt, &f.NextFollowUp, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.FollowUp{}, ErrNotFound
	}
	if err != nil {
		return model.FollowUp{}, fmt.Errorf("addFollowUp: %w", err)
	}
	return f, nil
}

// ListFollowUps returns an application's follow-ups, newest first.
func (s *Store) ListFollowUps(ctx context.Context, userID, appID string) ([]model.FollowUp, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT f.id, f.application_id, f.note, f.sent_at, f.next_follow_up, f.created_at
		 FROM follow_ups f
		 JOIN applications a ON a.id = f.application_id
		 WHERE f.application_id = $1 AND a.user_id = $2
		 ORDER BY f.sent_at DESC`,
		appID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listFollowUps query: %w", err)
	}
	defer rows.Close()

	followUps := make([]model.FollowUp, 0)
	for rows.Next() {
		var f model.FollowUp
		if err := rows.Scan(&f.ID, &f.ApplicationID, &f.Note, &f.SentAt, &f.NextFollowUp, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("listFollowUps scan: %w", err)
		}
		followUps = append(followUps, f)
	}
	return followUps, rows.Err()
}

// CountFollowUps returns follow-up counts per application for the user,
// used by the CSV export join.
func (s *Store) CountFollowUps(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT f.application_id, COUNT(*)
		 FROM follow_ups f
		 JOIN applications a ON a.id = f.application_id
		 WHERE a.user_id = $1
		 GROUP BY f.application_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("countFollowUps query: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var appID string
		var n int
		if err := rows.Scan(&appID, &n); err != nil {
			return nil, fmt.Errorf("countFollowUps scan: %w", err)
		}
		counts[appID] = n
	}
	return counts, rows.Err()
}
