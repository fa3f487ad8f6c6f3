package pipeline_test

import (
	"testing"

	"trackline/tracker-service/internal/pipeline"
)

// ── ParseStatus ────────────────────────────────────────────────────────────

func TestParseStatus_ValidValues(t *testing.T) {
	valid := []string{"APPLIED", "OA", "INTERVIEW", "OFFER", "ACCEPTED", "REJECTED"}
	for _, s := range valid {
		got, err := pipeline.ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_InvalidValue(t *testing.T) {
	_, err := pipeline.ParseStatus("UNKNOWN")
	if err == nil {
		t.Error("ParseStatus(\"UNKNOWN\") expected error, got nil")
	}
}

func TestParseStatus_EmptyString(t *testing.T) {
	_, err := pipeline.ParseStatus("")
	if err == nil {
		t.Error("ParseStatus(\"\") expected error, got nil")
	}
}

// ── IsTerminal ─────────────────────────────────────────────────────────────

func TestIsTerminal(t *testing.T) {
	for _, s := range []pipeline.Status{pipeline.StatusAccepted, pipeline.StatusRejected} {
		if !pipeline.IsTerminal(s) {
			t.Errorf("IsTerminal(%s) should return true", s)
		}
	}
	for _, s := range []pipeline.Status{
		pipeline.StatusApplied,
		pipeline.StatusOA,
		pipeline.StatusInterview,
		pipeline.StatusOffer,
	} {
		if pipeline.IsTerminal(s) {
			t.Errorf("IsTerminal(%s) should return false", s)
		}
	}
}

// Unknown values are never terminal, even though they have no transitions.
func TestIsTerminal_UnknownStatus(t *testing.T) {
	if pipeline.IsTerminal(pipeline.Status("GHOSTED")) {
		t.Error("IsTerminal(GHOSTED) should return false for unknown status")
	}
}

// ── CanTransition — full 36-pair matrix ────────────────────────────────────

func TestCanTransition_FullMatrix(t *testing.T) {
	allowed := map[[2]pipeline.Status]bool{
		{pipeline.StatusApplied, pipeline.StatusOA}:         true,
		{pipeline.StatusOA, pipeline.StatusInterview}:       true,
		{pipeline.StatusInterview, pipeline.StatusOffer}:    true,
		{pipeline.StatusOffer, pipeline.StatusAccepted}:     true,
		{pipeline.StatusOffer, pipeline.StatusRejected}:     true,
	}
	for _, from := range pipeline.AllStatuses {
		for _, to := range pipeline.AllStatuses {
			want := allowed[[2]pipeline.Status{from, to}]
			if got := pipeline.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s → %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

// ── ValidNextStatuses ──────────────────────────────────────────────────────

func TestValidNextStatuses(t *testing.T) {
	cases := []struct {
		from pipeline.Status
		want []pipeline.Status
	}{
		{pipeline.StatusApplied, []pipeline.Status{pipeline.StatusOA}},
		{pipeline.StatusOA, []pipeline.Status{pipeline.StatusInterview}},
		{pipeline.StatusInterview, []pipeline.Status{pipeline.StatusOffer}},
		{pipeline.StatusOffer, []pipeline.Status{pipeline.StatusAccepted, pipeline.StatusRejected}},
		{pipeline.StatusAccepted, []pipeline.Status{}},
		{pipeline.StatusRejected, []pipeline.Status{}},
	}
	for _, c := range cases {
		got := pipeline.ValidNextStatuses(c.from)
		if len(got) != len(c.want) {
			t.Errorf("ValidNextStatuses(%s) = %v, want %v", c.from, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("ValidNextStatuses(%s)[%d] = %s, want %s", c.from, i, got[i], c.want[i])
			}
		}
	}
}

func TestValidNextStatuses_UnknownStatus(t *testing.T) {
	if got := pipeline.ValidNextStatuses(pipeline.Status("GHOSTED")); len(got) != 0 {
		t.Errorf("ValidNextStatuses(GHOSTED) = %v, want empty", got)
	}
}

// ── CheckTransition — classification ───────────────────────────────────────

func TestCheckTransition_LegalReturnsNil(t *testing.T) {
	cases := [][2]pipeline.Status{
		{pipeline.StatusApplied, pipeline.StatusOA},
		{pipeline.StatusOA, pipeline.StatusInterview},
		{pipeline.StatusInterview, pipeline.StatusOffer},
		{pipeline.StatusOffer, pipeline.StatusAccepted},
		{pipeline.StatusOffer, pipeline.StatusRejected},
	}
	for _, c := range cases {
		if err := pipeline.CheckTransition(c[0], c[1]); err != nil {
			t.Errorf("CheckTransition(%s → %s) = %v, want nil", c[0], c[1], err)
		}
	}
}

func TestCheckTransition_Kinds(t *testing.T) {
	cases := []struct {
		from pipeline.Status
		to   pipeline.Status
		kind pipeline.ErrorKind
	}{
		{pipeline.Status("GHOSTED"), pipeline.StatusOA, pipeline.ErrUnknownCurrent},
		{pipeline.StatusApplied, pipeline.Status("GHOSTED"), pipeline.ErrUnknownTarget},
		{pipeline.StatusOA, pipeline.StatusOA, pipeline.ErrNoOp},
		{pipeline.StatusAccepted, pipeline.StatusRejected, pipeline.ErrTerminal},
		{pipeline.StatusRejected, pipeline.StatusApplied, pipeline.ErrTerminal},
		{pipeline.StatusApplied, pipeline.StatusInterview, pipeline.ErrSkip}, // skip OA
		{pipeline.StatusApplied, pipeline.StatusOffer, pipeline.ErrSkip},     // skip two
		{pipeline.StatusOA, pipeline.StatusAccepted, pipeline.ErrSkip},       // skip two
		{pipeline.StatusOA, pipeline.StatusApplied, pipeline.ErrSkip},        // backwards
		{pipeline.StatusOffer, pipeline.StatusInterview, pipeline.ErrSkip},   // backwards
	}
	for _, c := range cases {
		err := pipeline.CheckTransition(c.from, c.to)
		if err == nil {
			t.Errorf("CheckTransition(%s → %s) = nil, want kind %s", c.from, c.to, c.kind)
			continue
		}
		if err.Kind != c.kind {
			t.Errorf("CheckTransition(%s → %s).Kind = %s, want %s", c.from, c.to, err.Kind, c.kind)
		}
		if err.Error() == "" {
			t.Errorf("CheckTransition(%s → %s) returned empty message", c.from, c.to)
		}
	}
}

// Every status with a non-empty next set must reject every target that is
// not exactly one hop ahead.
func TestCheckTransition_NoSkipProperty(t *testing.T) {
	for _, from := range pipeline.AllStatuses {
		next := pipeline.ValidNextStatuses(from)
		if len(next) == 0 {
			continue
		}
		oneHop := map[pipeline.Status]bool{}
		for _, s := range next {
			oneHop[s] = true
		}
		for _, to := range pipeline.AllStatuses {
			if oneHop[to] || to == from {
				continue
			}
			err := pipeline.CheckTransition(from, to)
			if err == nil {
				t.Errorf("CheckTransition(%s → %s) should be rejected", from, to)
				continue
			}
			if err.Kind != pipeline.ErrSkip {
				t.Errorf("CheckTransition(%s → %s).Kind = %s, want %s", from, to, err.Kind, pipeline.ErrSkip)
			}
		}
	}
}
