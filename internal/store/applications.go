package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"trackline/tracker-service/internal/model"
	"trackline/tracker-service/internal/pipeline"
)

const applicationColumns = `id, user_id, company, role, platform, status,
	applied_date, deadline, reminder_enabled, created_at, updated_at`

func scanApplication(row pgx.Row) (model.Application, error) {
	var a model.Application
	var status string
	err := row.Scan(
		&a.ID, &a.UserID, &a.Company, &a.Role, &a.Platform, &status,
		&a.AppliedDate, &a.Deadline, &a.ReminderEnabled, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return model.Application{}, err
	}
	a.Status = pipeline.Status(status)
	return a, nil
}

// NewApplication is the input for CreateApplication.
type NewApplication struct {
	Company         string
	Role            string
	Platform        *string
	Status          pipeline.Status
	AppliedDate     time.Time
	Deadline        *time.Time
	ReminderEnabled bool
}

// CreateApplication inserts a new application and returns the stored row.
func (s *Store) CreateApplication(ctx context.Context, userID string, in NewApplication) (model.Application, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO applications
		   (id, user_id, company, role, platform, status, applied_date, deadline, reminder_enabled)
		 VALUES ($1, $2, $3, $4, $5, $6::application_status, $7, $8, $9)
		 RETURNING `+applicationColumns,
		uuid.NewString(), userID, in.Company, in.Role, in.Platform,
		string(in.Status), in.AppliedDate, in.Deadline, in.ReminderEnabled,
	)
	a, err := scanApplication(row)
	if err != nil {
		return model.Application{}, fmt.Errorf("createApplication: %w", err)
	}
	return a, nil
}

// GetApplication returns a single application by ID, validating ownership.
func (s *Store) GetApplication(ctx context.Context, userID, appID string) (model.Application, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1 AND user_id = $2`,
		appID, userID,
	)
	a, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Application{}, ErrNotFound
	}
	if err != nil {
		return model.Application{}, fmt.Errorf("getApplication: %w", err)
	}
	return a, nil
}

// ListApplications returns all applications for the given user, newest
// activity first. If statusFilter is non-empty, only that status is
// returned.
func (s *Store) ListApplications(ctx context.Context, userID string, statusFilter pipeline.Status) ([]model.Application, error) {
	const base = `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1`

	var (
		rows pgx.Rows
		err  error
	)
	if statusFilter != "" {
		rows, err = s.pool.Query(ctx, base+` AND status = $2::application_status ORDER BY updated_at DESC`, userID, string(statusFilter))
	} else {
		rows, err = s.pool.Query(ctx, base+` ORDER BY updated_at DESC`, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("listApplications query: %w", err)
	}
	defer rows.Close()

	apps := make([]model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("listApplications scan: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// UpdateApplication overwrites the mutable fields of an application with
// the given merged state and bumps updated_at. Status is not touched here;
// use UpdateApplicationStatus.
func (s *Store) UpdateApplication(ctx context.Context, a model.Application) (model.Application, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE applications
		 SET company = $1, role = $2, platform = $3, applied_date = $4,
		     deadline = $5, reminder_enabled = $6, updated_at = NOW()
		 WHERE id = $7 AND user_id = $8
		 RETURNING `+applicationColumns,
		a.Company, a.Role, a.Platform, a.AppliedDate,
		a.Deadline, a.ReminderEnabled, a.ID, a.UserID,
	)
	out, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Application{}, ErrNotFound
	}
	if err != nil {
		return model.Application{}, fmt.Errorf("updateApplication: %w", err)
	}
	return out, nil
}

// UpdateApplicationStatus moves an application to newStatus, guarded by a
// compare-and-swap on the expected current status so a racing transition
// loses with ErrConflict instead of recording an illegal hop.
func (s *Store) UpdateApplicationStatus(ctx context.Context, userID, appID string, expected, newStatus pipeline.Status) (model.Application, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE applications
		 SET status = $1::application_status, updated_at = NOW()
		 WHERE id = $2 AND user_id = $3 AND status = $4::application_status
		 RETURNING `+applicationColumns,
		string(newStatus), appID, userID, string(expected),
	)
	a, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a vanished row from a lost race.
		if _, getErr := s.GetApplication(ctx, userID, appID); getErr != nil {
			return model.Application{}, getErr
		}
		return model.Application{}, ErrConflict
	}
	if err != nil {
		return model.Application{}, fmt.Errorf("updateApplicationStatus: %w", err)
	}
	return a, nil
}

// DeleteApplication removes the application row. Events, notes and
// follow-ups cascade at the database level.
func (s *Store) DeleteApplication(ctx context.Context, userID, appID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM applications WHERE id = $1 AND user_id = $2`,
		appID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleteApplication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDeadlineCandidates returns, across all users, non-terminal
// applications with the reminder flag on and a deadline within the next
// windowDays days (today included). Used by the reminder job.
func (s *Store) ListDeadlineCandidates(ctx context.Context, windowDays int) ([]model.Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+applicationColumns+`
		 FROM applications
		 WHERE reminder_enabled
		   AND status NOT IN ('ACCEPTED', 'REJECTED')
		   AND deadline IS NOT NULL
		   AND deadline >= CURRENT_DATE
		   AND deadline <= CURRENT_DATE + $1::int
		 ORDER BY deadline`,
		windowDays,
	)
	if err != nil {
		return nil, fmt.Errorf("listDeadlineCandidates query: %w", err)
	}
	defer rows.Close()

	apps := make([]model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("listDeadlineCandidates scan: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// ListStaleApplications returns, across all users, applications sitting in
// an active stage with no mutation for at least staleDays days.
func (s *Store) ListStaleApplications(ctx context.Context, staleDays int) ([]model.Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+applicationColumns+`
		 FROM applications
		 WHERE status IN ('APPLIED', 'OA', 'INTERVIEW')
		   AND updated_at < NOW() - ($1::int * INTERVAL '1 day')
		 ORDER BY updated_at`,
		staleDays,
	)
	if err != nil {
		return nil, fmt.Errorf("listStaleApplications query: %w", err)
	}
	defer rows.Close()

	apps := make([]model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("listStaleApplications scan: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}
