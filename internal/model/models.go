// Package model defines shared data structures for the tracker service.
package model

import (
	"time"

	"trackline/tracker-service/internal/pipeline"
)

// Application is one tracked job/internship application. It is the
// aggregate root: events, notes and follow-ups belong to it and are removed
// with it. UpdatedAt reflects the true last-mutation time — the inactivity
// reminder job depends on that.
type Application struct {
	ID              string          `json:"id"`
	UserID          string          `json:"-"`
	Company         string          `json:"company"`
	Role            string          `json:"role"`
	Platform        *string         `json:"platform"`
	Status          pipeline.Status `json:"status"`
	AppliedDate     time.Time       `json:"appliedDate"`
	Deadline        *time.Time      `json:"deadline"`
	ReminderEnabled bool            `json:"reminderEnabled"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// PlatformName returns the platform or the empty string when unset.
func (a *Application) PlatformName() string {
	if a.Platform == nil {
		return ""
	}
	return *a.Platform
}

// Note is a free-text annotation on an application. Notes are created and
// deleted, never edited.
type Note struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"createdAt"`
}

// FollowUp records outreach on an application: an optional note, when it
// was sent, and an optional date for the next planned follow-up.
type FollowUp struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"applicationId"`
	Note          *string    `json:"note"`
	SentAt        time.Time  `json:"sentAt"`
	NextFollowUp  *time.Time `json:"nextFollowUp"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// SuggestionActionType is what the user did with a suggestion.
type SuggestionActionType string

const (
	ActionDismissed SuggestionActionType = "dismissed"
	ActionSnoozed   SuggestionActionType = "snoozed"
)

// SuggestionAction is a per-user ledger entry keyed by suggestion key.
// Suggestions themselves are recomputed on every read and never stored;
// this ledger only filters them out of the response. Entries are keyed by
// the derived suggestion key rather than an application foreign key, so
// they survive application deletion harmlessly.
type SuggestionAction struct {
	UserID      string               `json:"-"`
	Key         string               `json:"key"`
	Action      SuggestionActionType `json:"action"`
	SnoozeUntil *time.Time           `json:"snoozeUntil"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// Notification is one row written by the reminder job.
type Notification struct {
	ID            string     `json:"id"`
	UserID        string     `json:"-"`
	ApplicationID string     `json:"applicationId"`
	Kind          string     `json:"kind"`
	Message       string     `json:"message"`
	CreatedAt     time.Time  `json:"createdAt"`
	ReadAt        *time.Time `json:"readAt"`
}
