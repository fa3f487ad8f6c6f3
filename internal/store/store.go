// Package store implements PostgreSQL persistence for applications, their
// event log, notes, follow-ups, suggestion actions and notifications.
//
// Every query is ownership-scoped: the caller's user id appears in the
// WHERE clause, so a row belonging to another user behaves exactly like a
// missing row (ErrNotFound).
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a row is missing or does not belong to the
// requesting user.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a compare-and-swap status update loses a
// race: the row exists but its current status no longer matches the
// expected value.
var ErrConflict = errors.New("concurrent modification")

// Store wraps the pgx pool. Method groups live in one file per entity.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
