package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"trackline/tracker-service/internal/model"
)

// AddNote attaches a free-text note to an application. The subquery
// enforces ownership; a foreign application yields ErrNotFound.
func (s *Store) AddNote(ctx context.Context, userID, appID, body string) (model.Note, error) {
	var n model.Note
	err := s.pool.QueryRow(ctx,
		`INSERT INTO application_notes (id, application_id, body)
		 SELECT $1, a.id, $3 FROM applications a WHERE a.id = $2 AND a.user_id = $4
		 RETURNING id, application_id, body, created_at`,
		uuid.NewString(), appID, body, userID,
	).Scan(&n.ID, &n.ApplicationID, &n.Body, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Note{}, ErrNotFound
	}
	if err != nil {
		return model.Note{}, fmt.Errorf("addNote: %w", err)
	}
	return n, nil
}

// ListNotes returns an application's notes, newest first.
func (s *Store) ListNotes(ctx context.Context, userID, appID string) ([]model.Note, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT n.id, n.application_id, n.body, n.created_at
		 FROM application_notes n
		 JOIN applications a ON a.id = n.application_id
		 WHERE n.application_id = $1 AND a.user_id = $2
		 ORDER BY n.created_at DESC`,
		appID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listNotes query: %w", err)
	}
	defer rows.Close()

	notes := make([]model.Note, 0)
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.ApplicationID, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("listNotes scan: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// DeleteNote removes one note, validating ownership through the
// applications join.
func (s *Store) DeleteNote(ctx context.Context, userID, noteID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM application_notes n
		 USING applications a
		 WHERE n.id = $1 AND a.id = n.application_id AND a.user_id = $2`,
		noteID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleteNote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
