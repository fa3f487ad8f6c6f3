package pipeline_test

// ── Additional edge-case tests ────────────────────────────────────────────
//
// This file extends pipeline_test.go with parsing edge cases and the
// structural invariants the tracker service relies on. The core transition
// matrix is already covered in pipeline_test.go.

import (
	"testing"

	"trackline/tracker-service/internal/pipeline"
)

// ParseStatus must be case-sensitive — lowercase variants must not be valid.
func TestParseStatus_CaseSensitive(t *testing.T) {
	lowercase := []string{"applied", "oa", "interview", "offer", "accepted", "rejected"}
	for _, s := range lowercase {
		_, err := pipeline.ParseStatus(s)
		if err == nil {
			t.Errorf("ParseStatus(%q) should reject lowercase value, got nil error", s)
		}
	}
}

// ParseStatus must reject whitespace-padded strings.
func TestParseStatus_WithWhitespace(t *testing.T) {
	padded := []string{" APPLIED", "APPLIED ", " APPLIED "}
	for _, s := range padded {
		_, err := pipeline.ParseStatus(s)
		if err == nil {
			t.Errorf("ParseStatus(%q) should reject padded value, got nil error", s)
		}
	}
}

// All six constants must round-trip through ParseStatus without error.
func TestParseStatus_AllConstantsRoundTrip(t *testing.T) {
	for _, s := range pipeline.AllStatuses {
		got, err := pipeline.ParseStatus(string(s))
		if err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

// Every terminal state (ACCEPTED, REJECTED) must NOT be the source of any
// allowed transition, regardless of target.
func TestCanTransition_TerminalStatesHaveNoOutgoing(t *testing.T) {
	terminals := []pipeline.Status{pipeline.StatusAccepted, pipeline.StatusRejected}
	for _, from := range terminals {
		for _, to := range pipeline.AllStatuses {
			if pipeline.CanTransition(from, to) {
				t.Errorf(
					"CanTransition(%s → %s) must be false: %s is a terminal state",
					from, to, from,
				)
			}
		}
	}
}

// APPLIED is the mandatory initial state for any new application.
// Verify it is never reachable from any other state.
func TestCanTransition_AppliedIsNeverReachable(t *testing.T) {
	sources := []pipeline.Status{
		pipeline.StatusOA,
		pipeline.StatusInterview,
		pipeline.StatusOffer,
		pipeline.StatusAccepted,
		pipeline.StatusRejected,
	}
	for _, from := range sources {
		if pipeline.CanTransition(from, pipeline.StatusApplied) {
			t.Errorf(
				"CanTransition(%s → APPLIED) must be false: APPLIED is only an initial state",
				from,
			)
		}
	}
}

// IsTerminal must agree with ValidNextStatuses for every recognized status.
func TestIsTerminal_AgreesWithValidNext(t *testing.T) {
	for _, s := range pipeline.AllStatuses {
		want := len(pipeline.ValidNextStatuses(s)) == 0
		if got := pipeline.IsTerminal(s); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, got, want)
		}
	}
}
