package store

import (
	"context"
	"fmt"
	"time"

	"trackline/tracker-service/internal/model"
)

// UpsertSuggestionAction records a dismissal or snooze for a suggestion
// key. Last write wins on repeat actions for the same key.
func (s *Store) UpsertSuggestionAction(ctx context.Context, userID, key string, action model.SuggestionActionType, snoozeUntil *time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO suggestion_actions (user_id, suggestion_key, action, snooze_until, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (user_id, suggestion_key)
		 DO UPDATE SET action = EXCLUDED.action,
		               snooze_until = EXCLUDED.snooze_until,
		               updated_at = NOW()`,
		userID, key, string(action), snoozeUntil,
	)
	if err != nil {
		return fmt.Errorf("upsertSuggestionAction: %w", err)
	}
	return nil
}

// ListSuggestionActions returns the user's full dismissal/snooze ledger.
func (s *Store) ListSuggestionActions(ctx context.Context, userID string) ([]model.SuggestionAction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, suggestion_key, action, snooze_until, updated_at
		 FROM suggestion_actions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listSuggestionActions query: %w", err)
	}
	defer rows.Close()

	actions := make([]model.SuggestionAction, 0)
	for rows.Next() {
		var a model.SuggestionAction
		var action string
		if err := rows.Scan(&a.UserID, &a.Key, &action, &a.SnoozeUntil, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("listSuggestionActions scan: %w", err)
		}
		a.Action = model.SuggestionActionType(action)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// DeleteSuggestionAction clears one ledger entry so the suggestion can
// resurface.
func (s *Store) DeleteSuggestionAction(ctx context.Context, userID, key string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM suggestion_actions WHERE user_id = $1 AND suggestion_key = $2`,
		userID, key,
	)
	if err != nil {
		return fmt.Errorf("deleteSuggestionAction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
