// Package event models the append-only lifecycle log of an application.
//
// Each state-changing operation on an application appends exactly one event
// (or a small fixed set, e.g. create-with-deadline). Events are never
// mutated; they are replayed to drive the analytics engine and rendered
// newest-first as the application timeline.
//
// The stored row keeps the legacy two-column (old_value, new_value) shape,
// but in code every event type is a distinct Payload struct with named
// fields, so callers never guess what the two string slots mean.
package event

import (
	"fmt"
	"time"

	"trackline/tracker-service/internal/pipeline"
)

// DateFormat is the wire format for deadline and follow-up dates.
const DateFormat = "2006-01-02"

// Type identifies what happened to the application.
type Type string

const (
	TypeCreated               Type = "created"
	TypeStatusChange          Type = "status_change"
	TypeDeadlineSet           Type = "deadline_set"
	TypeDeadlineUpdated       Type = "deadline_updated"
	TypeDeadlineRemoved       Type = "deadline_removed"
	TypeReminderEnabled       Type = "reminder_enabled"
	TypeReminderDisabled      Type = "reminder_disabled"
	TypeFollowUpSent          Type = "follow_up_sent"
	TypeNextFollowUpScheduled Type = "next_follow_up_scheduled"
	TypeDeleted               Type = "deleted"
)

// Event is one stored audit row.
type Event struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"applicationId"`
	Type          Type       `json:"type"`
	OldValue      *string    `json:"oldValue"`
	NewValue      *string    `json:"newValue"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// UserEvent is an event joined at read time with the owning application's
// immutable platform and role, for cross-application analytics replay.
type UserEvent struct {
	Event
	Platform string `json:"platform"`
	Role     string `json:"role"`
}

// ─── Payload union ───────────────────────────────────────────────────────────

// Payload is one concrete event body. Values projects the body onto the
// stored (old_value, new_value) columns.
type Payload interface {
	EventType() Type
	Values() (oldValue, newValue *string)
}

// Created records the initial status of a new application.
type Created struct{ Status pipeline.Status }

// StatusChange records a legal pipeline transition.
type StatusChange struct{ From, To pipeline.Status }

// DeadlineSet records a deadline added where none existed.
type DeadlineSet struct{ Date string }

// DeadlineUpdated records a deadline changed from Old to New.
type DeadlineUpdated struct{ Old, New string }

// DeadlineRemoved records a deadline cleared.
type DeadlineRemoved struct{ Old string }

// ReminderEnabled records the reminder flag flipping on.
type ReminderEnabled struct{}

// ReminderDisabled records the reminder flag flipping off.
type ReminderDisabled struct{}

// FollowUpSent records logged outreach; Note may be empty.
type FollowUpSent struct{ Note string }

// NextFollowUpScheduled records the date the user plans to follow up again.
type NextFollowUpScheduled struct{ Date string }

// Deleted records the status the application held when it was removed.
type Deleted struct{ Status pipeline.Status }

func (p Created) EventType() Type               { return TypeCreated }
func (p StatusChange) EventType() Type          { return TypeStatusChange }
func (p DeadlineSet) EventType() Type           { return TypeDeadlineSet }
func (p DeadlineUpdated) EventType() Type       { return TypeDeadlineUpdated }
func (p DeadlineRemoved) EventType() Type       { return TypeDeadlineRemoved }
func (p ReminderEnabled) EventType() Type       { return TypeReminderEnabled }
func (p ReminderDisabled) EventType() Type      { return TypeReminderDisabled }
func (p FollowUpSent) EventType() Type          { return TypeFollowUpSent }
func (p NextFollowUpScheduled) EventType() Type { return TypeNextFollowUpScheduled }
func (p Deleted) EventType() Type               { return TypeDeleted }

func (p Created) Values() (*string, *string)      { return nil, strptr(string(p.Status)) }
func (p StatusChange) Values() (*string, *string) { return strptr(string(p.From)), strptr(string(p.To)) }
func (p DeadlineSet) Values() (*string, *string)  { return nil, strptr(p.Date) }
func (p DeadlineUpdated) Values() (*string, *string) {
	return strptr(p.Old), strptr(p.New)
}
func (p DeadlineRemoved) Values() (*string, *string)  { return strptr(p.Old), nil }
func (p ReminderEnabled) Values() (*string, *string)  { return nil, nil }
func (p ReminderDisabled) Values() (*string, *string) { return nil, nil }
func (p FollowUpSent) Values() (*string, *string) {
	if p.Note == "" {
		return nil, nil
	}
	return nil, strptr(p.Note)
}
func (p NextFollowUpScheduled) Values() (*string, *string) { return nil, strptr(p.Date) }
func (p Deleted) Values() (*string, *string)               { return strptr(string(p.Status)), nil }

// Payload decodes the stored row back into its typed body. Unknown event
// types are an error: the enum is closed.
func (e Event) Payload() (Payload, error) {
	oldVal := deref(e.OldValue)
	newVal := deref(e.NewValue)
	switch e.Type {
	case TypeCreated:
		return Created{Status: pipeline.Status(newVal)}, nil
	case TypeStatusChange:
		return StatusChange{From: pipeline.Status(oldVal), To: pipeline.Status(newVal)}, nil
	case TypeDeadlineSet:
		return DeadlineSet{Date: newVal}, nil
	case TypeDeadlineUpdated:
		return DeadlineUpdated{Old: oldVal, New: newVal}, nil
	case TypeDeadlineRemoved:
		return DeadlineRemoved{Old: oldVal}, nil
	case TypeReminderEnabled:
		return ReminderEnabled{}, nil
	case TypeReminderDisabled:
		return ReminderDisabled{}, nil
	case TypeFollowUpSent:
		return FollowUpSent{Note: newVal}, nil
	case TypeNextFollowUpScheduled:
		return NextFollowUpScheduled{Date: newVal}, nil
	case TypeDeleted:
		return Deleted{Status: pipeline.Status(oldVal)}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", e.Type)
}

// ─── Derivation helpers ──────────────────────────────────────────────────────

// Fields is the slice of an application's state whose edits produce events.
type Fields struct {
	Deadline        *time.Time
	ReminderEnabled bool
}

// CreationPayloads returns the event set appended when an application is
// created: created, plus deadline_set / reminder_enabled when applicable.
func CreationPayloads(status pipeline.Status, deadline *time.Time, reminderOn bool) []Payload {
	out := []Payload{Created{Status: status}}
	if deadline != nil {
		out = append(out, DeadlineSet{Date: deadline.Format(DateFormat)})
	}
	if reminderOn {
		out = append(out, ReminderEnabled{})
	}
	return out
}

// Diff returns the events implied by a field edit, per the append contract:
// deadline added / changed / cleared, reminder flag flipped. A no-change
// edit yields no events.
func Diff(before, after Fields) []Payload {
	var out []Payload
	switch {
	case before.Deadline == nil && after.Deadline != nil:
		out = append(out, DeadlineSet{Date: after.Deadline.Format(DateFormat)})
	case before.Deadline != nil && after.Deadline == nil:
		out = append(out, DeadlineRemoved{Old: before.Deadline.Format(DateFormat)})
	case before.Deadline != nil && after.Deadline != nil &&
		!before.Deadline.Equal(*after.Deadline):
		out = append(out, DeadlineUpdated{
			Old: before.Deadline.Format(DateFormat),
			New: after.Deadline.Format(DateFormat),
		})
	}
	if !before.ReminderEnabled && after.ReminderEnabled {
		out = append(out, ReminderEnabled{})
	}
	if before.ReminderEnabled && !after.ReminderEnabled {
		out = append(out, ReminderDisabled{})
	}
	return out
}

// FollowUpPayloads returns the event set appended when outreach is logged:
// follow_up_sent, plus next_follow_up_scheduled when a next date was given.
func FollowUpPayloads(note string, next *time.Time) []Payload {
	out := []Payload{FollowUpSent{Note: note}}
	if next != nil {
		out = append(out, NextFollowUpScheduled{Date: next.Format(DateFormat)})
	}
	return out
}

func strptr(s string) *string { return &s }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
