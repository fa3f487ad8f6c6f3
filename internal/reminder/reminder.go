// Package reminder runs the periodic notification job: it sweeps for
// applications with an approaching deadline and for active applications
// that have gone quiet, and writes a notification row for each hit.
//
// Dedup is handled with a Redis SETNX key per (kind, application, day)
// so restarting the service or shortening the interval never double
// notifies within the same day.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"trackline/tracker-service/internal/event"
	"trackline/tracker-service/internal/model"
	"trackline/tracker-service/internal/store"
)

const (
	KindDeadline   = "deadline"
	KindInactivity = "inactivity"

	// Dedup keys outlive the day they guard so a sweep straddling
	// midnight cannot re-fire immediately.
	dedupTTL = 48 * time.Hour
)

// Job wraps robfig/cron and runs both sweeps on a fixed interval.
type Job struct {
	store *store.Store
	rdb   *redis.Client
	cron  *cron.Cron
	spec  string // cron spec, e.g. "@every 6h"

	deadlineWindowDays int
	staleAfterDays     int

	now func() time.Time
}

// New creates a Job that fires every intervalHours hours.
func New(st *store.Store, rdb *redis.Client, intervalHours, deadlineWindowDays, staleAfterDays int) *Job {
	return &Job{
		store:              st,
		rdb:                rdb,
		cron:               cron.New(cron.WithLogger(cron.DefaultLogger)),
		spec:               fmt.Sprintf("@every %dh", intervalHours),
		deadlineWindowDays: deadlineWindowDays,
		staleAfterDays:     staleAfterDays,
		now:                time.Now,
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so notifications exist without waiting for the first tick.
func (j *Job) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.spec, func() {
		j.sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	j.cron.Start()
	slog.Info("reminder job started", "spec", j.spec)

	go j.sweep(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (j *Job) Stop() {
	j.cron.Stop()
	slog.Info("reminder job stopped")
}

func (j *Job) sweep(ctx context.Context) {
	slog.Info("reminder sweep started")
	j.sweepDeadlines(ctx)
	j.sweepStale(ctx)
	slog.Info("reminder sweep complete")
}

// sweepDeadlines notifies for reminder-enabled, non-terminal applications
// whose deadline falls within the configured window.
func (j *Job) sweepDeadlines(ctx context.Context) {
	apps, err := j.store.ListDeadlineCandidates(ctx, j.deadlineWindowDays)
	if err != nil {
		slog.Error("deadline sweep query failed", "err", err)
		return
	}
	for _, app := range apps {
		if app.Deadline == nil {
			continue
		}
		days := daysUntil(*app.Deadline, j.now())
		if days < 0 || days > j.deadlineWindowDays {
			continue
		}
		j.notify(ctx, KindDeadline, app, deadlineMessage(app, days))
	}
}

// sweepStale notifies for applications still in an active status whose
// last update is older than the stale threshold.
func (j *Job) sweepStale(ctx context.Context) {
	apps, err := j.store.ListStaleApplications(ctx, j.staleAfterDays)
	if err != nil {
		slog.Error("stale sweep query failed", "err", err)
		return
	}
	for _, app := range apps {
		days := int(j.now().Sub(app.UpdatedAt).Hours() / 24)
		j.notify(ctx, KindInactivity, app, staleMessage(app, days))
	}
}

// notify inserts one notification row unless today's dedup key for this
// (kind, application) already exists.
func (j *Job) notify(ctx context.Context, kind string, app model.Application, message string) {
	ok, err := j.claimDedup(ctx, kind, app.ID)
	if err != nil {
		slog.Warn("notification dedup check failed", "kind", kind, "appId", app.ID, "err", err)
		return
	}
	if !ok {
		return
	}
	n := model.Notification{
		UserID:        app.UserID,
		ApplicationID: app.ID,
		Kind:          kind,
		Message:       message,
	}
	if err := j.store.InsertNotification(ctx, n); err != nil {
		slog.Error("notification insert failed", "kind", kind, "appId", app.ID, "err", err)
	}
}

// claimDedup atomically claims today's dedup slot for (kind, appID).
// Returns false when a notification for that slot was already sent.
func (j *Job) claimDedup(ctx context.Context, kind, appID string) (bool, error) {
	key := fmt.Sprintf("notif:%s:%s:%s", kind, appID, j.now().UTC().Format(event.DateFormat))
	return j.rdb.SetNX(ctx, key, "1", dedupTTL).Result()
}

// ─── Message wording ─────────────────────────────────────────────────────────

func deadlineMessage(app model.Application, days int) string {
	when := app.Deadline.Format(event.DateFormat)
	switch days {
	case 0:
		return fmt.Sprintf("%s deadline is today (%s)", app.Company, when)
	case 1:
		return fmt.Sprintf("%s deadline is tomorrow (%s)", app.Company, when)
	default:
		return fmt.Sprintf("%s deadline is in %d days (%s)", app.Company, days, when)
	}
}

func staleMessage(app model.Application, days int) string {
	return fmt.Sprintf("No activity on %s — %s for %d days", app.Company, app.Role, days)
}

// daysUntil counts whole calendar days from now to target, UTC dates.
func daysUntil(target, now time.Time) int {
	t := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(n).Hours() / 24)
}
