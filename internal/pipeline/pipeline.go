// Package pipeline defines the status state machine for tracked applications.
//
// Valid status graph:
//
//	APPLIED ──► OA ──► INTERVIEW ──► OFFER ──► ACCEPTED
//	                                    │
//	                                    └────► REJECTED
//
// ACCEPTED and REJECTED are terminal states. Transitions are strictly
// non-skippable: every intermediate stage must be visited so that the
// analytics funnel sees a complete event trail per application.
package pipeline

import "fmt"

// Status values mirror the application_status enum in PostgreSQL.
type Status string

const (
	StatusApplied   Status = "APPLIED"
	StatusOA        Status = "OA"
	StatusInterview Status = "INTERVIEW"
	StatusOffer     Status = "OFFER"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
)

// AllStatuses lists every recognized status in pipeline order.
var AllStatuses = []Status{
	StatusApplied, StatusOA, StatusInterview, StatusOffer,
	StatusAccepted, StatusRejected,
}

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusApplied:   {StatusOA},
	StatusOA:        {StatusInterview},
	StatusInterview: {StatusOffer},
	StatusOffer:     {StatusAccepted, StatusRejected},
	// ACCEPTED and REJECTED are terminal — no outgoing transitions
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusApplied, StatusOA, StatusInterview, StatusOffer, StatusAccepted, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsKnown reports whether s is one of the six recognized status values.
func IsKnown(s Status) bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// ValidNextStatuses returns the set of statuses reachable in one step from
// current. Terminal and unknown statuses yield an empty slice.
func ValidNextStatuses(current Status) []Status {
	next := validTransitions[current]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether s is a recognized status with no outgoing
// transitions.
func IsTerminal(s Status) bool {
	if !IsKnown(s) {
		return false
	}
	return len(validTransitions[s]) == 0
}

// CanTransition returns true when moving from → to is permitted by the
// state machine.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ─── Transition errors ───────────────────────────────────────────────────────

// ErrorKind classifies why a transition was rejected so callers can branch
// on the reason instead of parsing the message.
type ErrorKind string

const (
	ErrUnknownCurrent ErrorKind = "unknown_current_status"
	ErrUnknownTarget  ErrorKind = "unknown_target_status"
	ErrNoOp           ErrorKind = "no_op"
	ErrTerminal       ErrorKind = "terminal_status"
	ErrSkip           ErrorKind = "illegal_skip"
)

// TransitionError is a rejected transition with a machine-readable kind and
// a user-facing message.
type TransitionError struct {
	Kind ErrorKind
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	switch e.Kind {
	case ErrUnknownCurrent:
		return fmt.Sprintf("unknown application status %q", e.From)
	case ErrUnknownTarget:
		return fmt.Sprintf("unknown application status %q", e.To)
	case ErrNoOp:
		return fmt.Sprintf("application is already %s", e.From)
	case ErrTerminal:
		return fmt.Sprintf("%s is a terminal status — no further transitions", e.From)
	default:
		return fmt.Sprintf("transition %s → %s is not allowed", e.From, e.To)
	}
}

// CheckTransition returns nil when moving from → to is legal, otherwise a
// TransitionError classifying the rejection. Checks are ordered: unknown
// statuses first, then no-op, then terminal source, then illegal skip.
func CheckTransition(from, to Status) *TransitionError {
	if !IsKnown(from) {
		return &TransitionError{Kind: ErrUnknownCurrent, From: from, To: to}
	}
	if !IsKnown(to) {
		return &TransitionError{Kind: ErrUnknownTarget, From: from, To: to}
	}
	if from == to {
		return &TransitionError{Kind: ErrNoOp, From: from, To: to}
	}
	if IsTerminal(from) {
		return &TransitionError{Kind: ErrTerminal, From: from, To: to}
	}
	if !CanTransition(from, to) {
		return &TransitionError{Kind: ErrSkip, From: from, To: to}
	}
	return nil
}
