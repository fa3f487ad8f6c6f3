// Package tracker contains the business logic and HTTP surface of the
// tracker service. The Service is transport-agnostic: handlers (handler.go)
// only decode requests, call it, and map errors to status codes.
package tracker

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"trackline/tracker-service/internal/analytics"
	"trackline/tracker-service/internal/event"
	"trackline/tracker-service/internal/insight"
	"trackline/tracker-service/internal/model"
	"trackline/tracker-service/internal/pipeline"
	"trackline/tracker-service/internal/store"
	"trackline/tracker-service/internal/suggest"
)

// Redis channels published on application lifecycle changes. The gateway
// forwards them to clients as SSE.
const (
	ChannelApplicationCreated = "EVENT_APPLICATION_CREATED"
	ChannelStatusChanged      = "EVENT_STATUS_CHANGED"
	ChannelApplicationDeleted = "EVENT_APPLICATION_DELETED"
)

// Service encapsulates all tracker business logic.
type Service struct {
	store *store.Store
	rdb   *redis.Client
	now   func() time.Time
}

// NewService returns a configured Service.
func NewService(st *store.Store, rdb *redis.Client) *Service {
	return &Service{store: st, rdb: rdb, now: func() time.Time { return time.Now().UTC() }}
}

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// ─── Applications ────────────────────────────────────────────────────────────

// ApplicationInput is the payload for creating an application.
type ApplicationInput struct {
	Company         string
	Role            string
	Platform        *string
	Status          pipeline.Status // empty means APPLIED
	AppliedDate     time.Time
	Deadline        *time.Time
	ReminderEnabled bool
}

// CreateApplication inserts a new application and appends its creation
// events. User-created applications always start at APPLIED; a non-empty
// Status is only for programmatic imports and must still be a known value.
func (s *Service) CreateApplication(ctx context.Context, userID string, in ApplicationInput) (model.Application, error) {
	if in.Company == "" {
		return model.Application{}, &ValidationError{Msg: "company is required"}
	}
	if in.Role == "" {
		return model.Application{}, &ValidationError{Msg: "role is required"}
	}
	status := in.Status
	if status == "" {
		status = pipeline.StatusApplied
	} else if !pipeline.IsKnown(status) {
		return model.Application{}, &ValidationError{Msg: fmt.Sprintf("unknown application status %q", status)}
	}
	appliedDate := in.AppliedDate
	if appliedDate.IsZero() {
		appliedDate = s.now()
	}

	a, err := s.store.CreateApplication(ctx, userID, store.NewApplication{
		Company:         in.Company,
		Role:            in.Role,
		Platform:        in.Platform,
		Status:          status,
		AppliedDate:     appliedDate,
		Deadline:        in.Deadline,
		ReminderEnabled: in.ReminderEnabled,
	})
	if err != nil {
		return model.Application{}, err
	}

	s.appendEvents(ctx, a.ID, event.CreationPayloads(status, in.Deadline, in.ReminderEnabled))
	s.publish(ctx, ChannelApplicationCreated, map[string]string{
		"applicationId": a.ID,
		"userId":        userID,
		"status":        string(status),
	})
	return a, nil
}

// GetApplication returns one application, validating ownership.
func (s *Service) GetApplication(ctx context.Context, userID, appID string) (model.Application, error) {
	return s.store.GetApplication(ctx, userID, appID)
}

// ListApplications returns the user's applications, optionally filtered by
// status. An invalid filter is a validation error.
func (s *Service) ListApplications(ctx context.Context, userID, statusFilter string) ([]model.Application, error) {
	var filter pipeline.Status
	if statusFilter != "" {
		parsed, err := pipeline.ParseStatus(statusFilter)
		if err != nil {
			return nil, &ValidationError{Msg: err.Error()}
		}
		filter = parsed
	}
	return s.store.ListApplications(ctx, userID, filter)
}

// ApplicationPatch is a partial update for an application's fields. Status
// changes go through MoveApplication instead.
type ApplicationPatch struct {
	Company       *string
	Role          *string
	Platform      *string
	AppliedDate   *time.Time
	Deadline      *time.Time
	ClearDeadline bool
	Reminder      *bool
}

// UpdateApplication applies a partial field edit and appends the implied
// deadline/reminder events.
func (s *Service) UpdateApplication(ctx context.Context, userID, appID string, patch ApplicationPatch) (model.Application, error) {
	current, err := s.store.GetApplication(ctx, userID, appID)
	if err != nil {
		return model.Application{}, err
	}

	merged := current
	if patch.Company != nil {
		if *patch.Company == "" {
			return model.Application{}, &ValidationError{Msg: "company cannot be empty"}
		}
		merged.Company = *patch.Company
	}
	if patch.Role != nil {
		if *patch.Role == "" {
			return model.Application{}, &ValidationError{Msg: "role cannot be empty"}
		}
		merged.Role = *patch.Role
	}
	if patch.Platform != nil {
		merged.Platform = patch.Platform
	}
	if patch.AppliedDate != nil {
		merged.AppliedDate = *patch.AppliedDate
	}
	if patch.ClearDeadline {
		merged.Deadline = nil
	} else if patch.Deadline != nil {
		merged.Deadline = patch.Deadline
	}
	if patch.Reminder != nil {
		merged.ReminderEnabled = *patch.Reminder
	}

	updated, err := s.store.UpdateApplication(ctx, merged)
	if err != nil {
		return model.Application{}, err
	}

	s.appendEvents(ctx, appID, event.Diff(
		event.Fields{Deadline: current.Deadline, ReminderEnabled: current.ReminderEnabled},
		event.Fields{Deadline: updated.Deadline, ReminderEnabled: updated.ReminderEnabled},
	))
	return updated, nil
}

// MoveApplication transitions an application to a new pipeline status.
// Returns store.ErrNotFound for a missing/foreign application, a
// *pipeline.TransitionError for an illegal transition and store.ErrConflict
// when a concurrent transition won the race.
func (s *Service) MoveApplication(ctx context.Context, userID, appID, newStatusStr string) (model.Application, error) {
	newStatus, err := pipeline.ParseStatus(newStatusStr)
	if err != nil {
		return model.Application{}, &ValidationError{Msg: err.Error()}
	}

	current, err := s.store.GetApplication(ctx, userID, appID)
	if err != nil {
		return model.Application{}, err
	}
	if terr := pipeline.CheckTransition(current.Status, newStatus); terr != nil {
		return model.Application{}, terr
	}

	app, err := s.store.UpdateApplicationStatus(ctx, userID, appID, current.Status, newStatus)
	if err != nil {
		return model.Application{}, err
	}

	s.appendEvents(ctx, appID, []event.Payload{
		event.StatusChange{From: current.Status, To: newStatus},
	})
	s.publish(ctx, ChannelStatusChanged, map[string]string{
		"applicationId": appID,
		"userId":        userID,
		"from":          string(current.Status),
		"to":            string(newStatus),
	})
	return app, nil
}

// DeleteApplication appends the deleted event, then removes the row.
// Child rows (events included) cascade at the database level.
func (s *Service) DeleteApplication(ctx context.Context, userID, appID string) error {
	current, err := s.store.GetApplication(ctx, userID, appID)
	if err != nil {
		return err
	}

	s.appendEvents(ctx, appID, []event.Payload{event.Deleted{Status: current.Status}})
	if err := s.store.DeleteApplication(ctx, userID, appID); err != nil {
		return err
	}

	s.publish(ctx, ChannelApplicationDeleted, map[string]string{
		"applicationId": appID,
		"userId":        userID,
	})
	return nil
}

// ─── Notes / follow-ups / events ─────────────────────────────────────────────

// AddNote attaches a note to an application.
func (s *Service) AddNote(ctx context.Context, userID, appID, body string) (model.Note, error) {
	if body == "" {
		return model.Note{}, &ValidationError{Msg: "note body is required"}
	}
	return s.store.AddNote(ctx, userID, appID, body)
}

// ListNotes returns an application's notes, newest first.
func (s *Service) ListNotes(ctx context.Context, userID, appID string) ([]model.Note, error) {
	return s.store.ListNotes(ctx, userID, appID)
}

// DeleteNote removes one note.
func (s *Service) DeleteNote(ctx context.Context, userID, noteID string) error {
	return s.store.DeleteNote(ctx, userID, noteID)
}

// AddFollowUp records outreach and appends the follow_up_sent event (plus
// next_follow_up_scheduled when a next date is given).
func (s *Service) AddFollowUp(ctx context.Context, userID, appID string, note *string, next *time.Time) (model.FollowUp, error) {
	f, err := s.store.AddFollowUp(ctx, userID, appID, note, s.now(), next)
	if err != nil {
		return model.FollowUp{}, err
	}

	noteText := ""
	if note != nil {
		noteText = *note
	}
	s.appendEvents(ctx, appID, event.FollowUpPayloads(noteText, next))
	return f, nil
}

// ListFollowUps returns an application's follow-ups, newest first.
func (s *Service) ListFollowUps(ctx context.Context, userID, appID string) ([]model.FollowUp, error) {
	return s.store.ListFollowUps(ctx, userID, appID)
}

// ListEvents returns an application's audit timeline, newest first.
func (s *Service) ListEvents(ctx context.Context, userID, appID string) ([]event.Event, error) {
	// Ownership check up front: an empty timeline for a foreign
	// application must still be a 404, not an empty 200.
	if _, err := s.store.GetApplication(ctx, userID, appID); err != nil {
		return nil, err
	}
	return s.store.ListEventsByApplication(ctx, userID, appID)
}

// ─── Analytics / insights / suggestions ──────────────────────────────────────

// Analytics replays the user's full event stream into a fresh snapshot.
func (s *Service) Analytics(ctx context.Context, userID string) (analytics.Snapshot, error) {
	events, err := s.store.ListUserEvents(ctx, userID)
	if err != nil {
		return analytics.Snapshot{}, err
	}
	return analytics.Compute(events, s.now()), nil
}

// Insights generates the full insight list. Display capping is the
// handler's concern.
func (s *Service) Insights(ctx context.Context, userID string) ([]insight.Insight, error) {
	snap, err := s.Analytics(ctx, userID)
	if err != nil {
		return nil, err
	}
	return insight.Generate(snap), nil
}

// Suggestions regenerates the suggestion list and filters it through the
// user's dismissal/snooze ledger.
func (s *Service) Suggestions(ctx context.Context, userID string) ([]suggest.Suggestion, error) {
	apps, err := s.store.ListApplications(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	snap, err := s.Analytics(ctx, userID)
	if err != nil {
		return nil, err
	}
	generated := suggest.Generate(apps, snap.Platforms, snap.Roles, s.now())

	actions, err := s.store.ListSuggestionActions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return suggest.Filter(generated, actions, s.now()), nil
}

// DismissSuggestion permanently hides a suggestion key.
func (s *Service) DismissSuggestion(ctx context.Context, userID, key string) error {
	if key == "" {
		return &ValidationError{Msg: "suggestion key is required"}
	}
	return s.store.UpsertSuggestionAction(ctx, userID, key, model.ActionDismissed, nil)
}

// SnoozeSuggestion hides a suggestion key until the given time.
func (s *Service) SnoozeSuggestion(ctx context.Context, userID, key string, until time.Time) error {
	if key == "" {
		return &ValidationError{Msg: "suggestion key is required"}
	}
	if !until.After(s.now()) {
		return &ValidationError{Msg: "snoozeUntil must be in the future"}
	}
	return s.store.UpsertSuggestionAction(ctx, userID, key, model.ActionSnoozed, &until)
}

// ClearSuggestionAction deletes a ledger entry so the suggestion can
// resurface.
func (s *Service) ClearSuggestionAction(ctx context.Context, userID, key string) error {
	if key == "" {
		return &ValidationError{Msg: "suggestion key is required"}
	}
	return s.store.DeleteSuggestionAction(ctx, userID, key)
}

// ─── Notifications ───────────────────────────────────────────────────────────

// ListNotifications returns the user's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	return s.store.ListNotifications(ctx, userID)
}

// MarkNotificationRead stamps one notification as read.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, notifID string) error {
	return s.store.MarkNotificationRead(ctx, userID, notifID)
}

// ─── Export ──────────────────────────────────────────────────────────────────

// ExportCSV writes the user's applications, joined with follow-up counts,
// as CSV.
func (s *Service) ExportCSV(ctx context.Context, userID string, w io.Writer) error {
	apps, err := s.store.ListApplications(ctx, userID, "")
	if err != nil {
		return err
	}
	counts, err := s.store.CountFollowUps(ctx, userID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"company", "role", "platform", "status", "applied_date", "deadline", "reminder_enabled", "follow_ups", "updated_at"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("exportCSV header: %w", err)
	}
	for _, a := range apps {
		deadline := ""
		if a.Deadline != nil {
			deadline = a.Deadline.Format(event.DateFormat)
		}
		rec := []string{
			a.Company,
			a.Role,
			a.PlatformName(),
			string(a.Status),
			a.AppliedDate.Format(event.DateFormat),
			deadline,
			strconv.FormatBool(a.ReminderEnabled),
			strconv.Itoa(counts[a.ID]),
			a.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("exportCSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ─── Best-effort side effects ────────────────────────────────────────────────

// appendEvents writes audit events after a successful primary mutation.
// A failure here is never propagated — the primary write already stands —
// but it is logged because analytics completeness depends on the trail.
func (s *Service) appendEvents(ctx context.Context, appID string, payloads []event.Payload) {
	if len(payloads) == 0 {
		return
	}
	if err := s.store.AppendEvents(ctx, appID, payloads); err != nil {
		slog.Warn("event append failed, audit trail incomplete",
			"applicationId", appID, "err", err)
	}
}

// publish sends a lifecycle event to Redis for the gateway SSE feed
// (non-fatal).
func (s *Service) publish(ctx context.Context, channel string, payload map[string]string) {
	if s.rdb == nil {
		return
	}
	b, _ := json.Marshal(payload)
	if err := s.rdb.Publish(ctx, channel, b).Err(); err != nil {
		slog.Warn("publish failed", "channel", channel, "err", err)
	}
}
