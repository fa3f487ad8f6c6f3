package event_test

import (
	"testing"
	"time"

	"trackline/tracker-service/internal/event"
	"trackline/tracker-service/internal/pipeline"
)

func date(s string) *time.Time {
	t, err := time.Parse(event.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// ── Diff — append contract for field edits ─────────────────────────────────

func TestDiff_DeadlineTransitions(t *testing.T) {
	cases := []struct {
		name   string
		before event.Fields
		after  event.Fields
		want   []event.Type
	}{
		{
			name:   "deadline added",
			before: event.Fields{},
			after:  event.Fields{Deadline: date("2026-09-01")},
			want:   []event.Type{event.TypeDeadlineSet},
		},
		{
			name:   "deadline changed",
			before: event.Fields{Deadline: date("2026-09-01")},
			after:  event.Fields{Deadline: date("2026-09-15")},
			want:   []event.Type{event.TypeDeadlineUpdated},
		},
		{
			name:   "deadline cleared",
			before: event.Fields{Deadline: date("2026-09-01")},
			after:  event.Fields{},
			want:   []event.Type{event.TypeDeadlineRemoved},
		},
		{
			name:   "deadline unchanged",
			before: event.Fields{Deadline: date("2026-09-01")},
			after:  event.Fields{Deadline: date("2026-09-01")},
			want:   nil,
		},
		{
			name:   "reminder turned on",
			before: event.Fields{},
			after:  event.Fields{ReminderEnabled: true},
			want:   []event.Type{event.TypeReminderEnabled},
		},
		{
			name:   "reminder turned off",
			before: event.Fields{ReminderEnabled: true},
			after:  event.Fields{},
			want:   []event.Type{event.TypeReminderDisabled},
		},
		{
			name:   "deadline and reminder together",
			before: event.Fields{Deadline: date("2026-09-01")},
			after:  event.Fields{ReminderEnabled: true},
			want:   []event.Type{event.TypeDeadlineRemoved, event.TypeReminderEnabled},
		},
		{
			name:   "no changes",
			before: event.Fields{ReminderEnabled: true},
			after:  event.Fields{ReminderEnabled: true},
			want:   nil,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := event.Diff(c.before, c.after)
			if len(got) != len(c.want) {
				t.Fatalf("Diff returned %d events, want %d", len(got), len(c.want))
			}
			for i := range got {
				if got[i].EventType() != c.want[i] {
					t.Errorf("Diff[%d] = %s, want %s", i, got[i].EventType(), c.want[i])
				}
			}
		})
	}
}

func TestDiff_DeadlineUpdatedCarriesOldDate(t *testing.T) {
	got := event.Diff(
		event.Fields{Deadline: date("2026-09-01")},
		event.Fields{Deadline: date("2026-09-15")},
	)
	if len(got) != 1 {
		t.Fatalf("Diff returned %d events, want 1", len(got))
	}
	upd, ok := got[0].(event.DeadlineUpdated)
	if !ok {
		t.Fatalf("Diff[0] is %T, want DeadlineUpdated", got[0])
	}
	if upd.Old != "2026-09-01" || upd.New != "2026-09-15" {
		t.Errorf("DeadlineUpdated = {%s → %s}, want {2026-09-01 → 2026-09-15}", upd.Old, upd.New)
	}
}

// ── CreationPayloads ───────────────────────────────────────────────────────

func TestCreationPayloads(t *testing.T) {
	cases := []struct {
		name     string
		deadline *time.Time
		reminder bool
		want     []event.Type
	}{
		{"bare create", nil, false, []event.Type{event.TypeCreated}},
		{"with deadline", date("2026-10-01"), false, []event.Type{event.TypeCreated, event.TypeDeadlineSet}},
		{"with reminder", nil, true, []event.Type{event.TypeCreated, event.TypeReminderEnabled}},
		{"with both", date("2026-10-01"), true, []event.Type{event.TypeCreated, event.TypeDeadlineSet, event.TypeReminderEnabled}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := event.CreationPayloads(pipeline.StatusApplied, c.deadline, c.reminder)
			if len(got) != len(c.want) {
				t.Fatalf("got %d events, want %d", len(got), len(c.want))
			}
			for i := range got {
				if got[i].EventType() != c.want[i] {
					t.Errorf("[%d] = %s, want %s", i, got[i].EventType(), c.want[i])
				}
			}
		})
	}
}

func TestFollowUpPayloads(t *testing.T) {
	got := event.FollowUpPayloads("spoke to recruiter", date("2026-09-05"))
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].EventType() != event.TypeFollowUpSent {
		t.Errorf("[0] = %s, want %s", got[0].EventType(), event.TypeFollowUpSent)
	}
	if got[1].EventType() != event.TypeNextFollowUpScheduled {
		t.Errorf("[1] = %s, want %s", got[1].EventType(), event.TypeNextFollowUpScheduled)
	}

	got = event.FollowUpPayloads("", nil)
	if len(got) != 1 || got[0].EventType() != event.TypeFollowUpSent {
		t.Errorf("bare follow-up should yield exactly one follow_up_sent event, got %v", got)
	}
}

// ── Stored-row round trip ──────────────────────────────────────────────────

func TestPayloadRoundTrip(t *testing.T) {
	payloads := []event.Payload{
		event.Created{Status: pipeline.StatusApplied},
		event.StatusChange{From: pipeline.StatusApplied, To: pipeline.StatusOA},
		event.DeadlineUpdated{Old: "2026-09-01", New: "2026-09-15"},
		event.FollowUpSent{Note: "pinged hiring manager"},
		event.Deleted{Status: pipeline.StatusInterview},
	}
	for _, p := range payloads {
		oldV, newV := p.Values()
		row := event.Event{Type: p.EventType(), OldValue: oldV, NewValue: newV}
		decoded, err := row.Payload()
		if err != nil {
			t.Errorf("Payload() for %s: %v", p.EventType(), err)
			continue
		}
		if decoded != p {
			t.Errorf("round trip for %s: got %#v, want %#v", p.EventType(), decoded, p)
		}
	}
}

func TestPayload_UnknownType(t *testing.T) {
	row := event.Event{Type: event.Type("mystery")}
	if _, err := row.Payload(); err == nil {
		t.Error("Payload() on unknown type should return an error")
	}
}
