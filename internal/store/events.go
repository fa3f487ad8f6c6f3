package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"trackline/tracker-service/internal/event"
)

// AppendEvent writes one audit row for the application. clock_timestamp()
// plus the seq column give a total order even within one transaction.
func (s *Store) AppendEvent(ctx context.Context, appID string, p event.Payload) error {
	oldVal, newVal := p.Values()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO application_events (id, application_id, event_type, old_value, new_value, created_at)
		 VALUES ($1, $2, $3, $4, $5, clock_timestamp())`,
		uuid.NewString(), appID, string(p.EventType()), oldVal, newVal,
	)
	if err != nil {
		return fmt.Errorf("appendEvent %s: %w", p.EventType(), err)
	}
	return nil
}

// AppendEvents appends each payload in order. It stops at the first
// failure; earlier appends stand (event logging is best-effort, never
// rolled back).
func (s *Store) AppendEvents(ctx context.Context, appID string, payloads []event.Payload) error {
	for _, p := range payloads {
		if err := s.AppendEvent(ctx, appID, p); err != nil {
			return err
		}
	}
	return nil
}

// ListEventsByApplication returns the application's timeline, newest first,
// validating ownership through the applications join.
func (s *Store) ListEventsByApplication(ctx context.Context, userID, appID string) ([]event.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.id, e.application_id, e.event_type, e.old_value, e.new_value, e.created_at
		 FROM application_events e
		 JOIN applications a ON a.id = e.application_id
		 WHERE e.application_id = $1 AND a.user_id = $2
		 ORDER BY e.created_at DESC, e.seq DESC`,
		appID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listEventsByApplication query: %w", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0)
	for rows.Next() {
		var e event.Event
		var typ string
		if err := rows.Scan(&e.ID, &e.ApplicationID, &typ, &e.OldValue, &e.NewValue, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("listEventsByApplication scan: %w", err)
		}
		e.Type = event.Type(typ)
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListUserEvents returns every event across the user's applications,
// oldest first, each denormalized with the owning application's platform
// and role for analytics replay.
func (s *Store) ListUserEvents(ctx context.Context, userID string) ([]event.UserEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.id, e.application_id, e.event_type, e.old_value, e.new_value, e.created_at,
		        COALESCE(a.platform, ''), a.role
		 FROM application_events e
		 JOIN applications a ON a.id = e.application_id
		 WHERE a.user_id = $1
		 ORDER BY e.created_at, e.seq`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listUserEvents query: %w", err)
	}
	defer rows.Close()

	events := make([]event.UserEvent, 0)
	for rows.Next() {
		var e event.UserEvent
		var typ string
		if err := rows.Scan(
			&e.ID, &e.ApplicationID, &typ, &e.OldValue, &e.NewValue, &e.CreatedAt,
			&e.Platform, &e.Role,
		); err != nil {
			return nil, fmt.Errorf("listUserEvents scan: %w", err)
		}
		e.Type = event.Type(typ)
		events = append(events, e)
	}
	return events, rows.Err()
}
