// Package suggest derives actionable suggestions from the user's current
// applications and their platform/role metrics.
//
// Suggestions are ephemeral: regenerated on every read, never persisted.
// Each carries a stable deterministic key so a persisted dismissal or
// snooze can be matched against the freshly generated set.
package suggest

import (
	"fmt"
	"sort"
	"time"

	"trackline/tracker-service/internal/analytics"
	"trackline/tracker-service/internal/model"
	"trackline/tracker-service/internal/pipeline"
)

// Type identifies the rule that produced a suggestion.
type Type string

const (
	TypeDeadline        Type = "deadline"
	TypeFollowUp        Type = "follow_up"
	TypeStale           Type = "stale"
	TypePlatformInsight Type = "platform_insight"
	TypeRoleInsight     Type = "role_insight"
)

// Priority orders suggestions for display.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Suggestion is one actionable recommendation.
type Suggestion struct {
	Key           string   `json:"key"`
	Type          Type     `json:"type"`
	Priority      Priority `json:"priority"`
	ApplicationID string   `json:"applicationId,omitempty"`
	Title         string   `json:"title"`
	Message       string   `json:"message"`
}

// Rule thresholds.
const (
	staleAfterDays     = 7
	staleHighDays      = 14
	deadlineWindowDays = 7
	deadlineHighDays   = 2
	minAppsPerGroup    = 2
	minGroups          = 2
	platformRateFloor  = 30
	tractionInterviews = 2
)

// priorityRank and typeRank fix the display order. The type order
// (deadline, follow_up, stale, platform_insight, role_insight) is the
// legacy tiebreak; keys must stay byte-stable or ledger matching breaks.
var priorityRank = map[Priority]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

var typeRank = map[Type]int{
	TypeDeadline:        0,
	TypeFollowUp:        1,
	TypeStale:           2,
	TypePlatformInsight: 3,
	TypeRoleInsight:     4,
}

// activeStatuses are the stages where a follow-up nudge makes sense.
var activeStatuses = map[pipeline.Status]bool{
	pipeline.StatusApplied:   true,
	pipeline.StatusOA:        true,
	pipeline.StatusInterview: true,
}

// Generate derives all applicable suggestions, sorted by priority then by
// the fixed type order. The same input always yields identical keys.
func Generate(
	apps []model.Application,
	platforms []analytics.PlatformMetric,
	roles []analytics.RoleMetric,
	now time.Time,
) []Suggestion {
	var out []Suggestion
	for _, a := range apps {
		if s := staleSuggestion(a, now); s != nil {
			out = append(out, *s)
		}
		if s := deadlineSuggestion(a, now); s != nil {
			out = append(out, *s)
		}
	}
	if s := platformSuggestion(platforms); s != nil {
		out = append(out, *s)
	}
	if s := roleSuggestion(roles); s != nil {
		out = append(out, *s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if priorityRank[out[i].Priority] != priorityRank[out[j].Priority] {
			return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
		}
		return typeRank[out[i].Type] < typeRank[out[j].Type]
	})
	return out
}

// staleSuggestion nudges a follow-up on applications sitting untouched in
// an active stage for a week or more.
func staleSuggestion(a model.Application, now time.Time) *Suggestion {
	if !activeStatuses[a.Status] {
		return nil
	}
	days := int(now.Sub(a.UpdatedAt).Hours() / 24)
	if days < staleAfterDays {
		return nil
	}
	prio := PriorityMedium
	if days >= staleHighDays {
		prio = PriorityHigh
	}
	return &Suggestion{
		Key:           fmt.Sprintf("follow_up:%s", a.ID),
		Type:          TypeFollowUp,
		Priority:      prio,
		ApplicationID: a.ID,
		Title:         fmt.Sprintf("Follow up with %s", a.Company),
		Message: fmt.Sprintf(
			"Your %s application at %s has had no activity for %d days. A short follow-up keeps you on the radar.",
			a.Role, a.Company, days),
	}
}

// deadlineSuggestion flags deadlines due within the next week. Past
// deadlines are skipped; a deadline due today gets the urgent wording.
func deadlineSuggestion(a model.Application, now time.Time) *Suggestion {
	if a.Deadline == nil || pipeline.IsTerminal(a.Status) {
		return nil
	}
	days := daysUntil(now, *a.Deadline)
	if days < 0 || days > deadlineWindowDays {
		return nil
	}
	prio := PriorityMedium
	if days <= deadlineHighDays {
		prio = PriorityHigh
	}

	var title, msg string
	if days == 0 {
		title = fmt.Sprintf("%s deadline is today", a.Company)
		msg = fmt.Sprintf("The deadline for %s at %s is today — act now.", a.Role, a.Company)
	} else {
		title = fmt.Sprintf("%s deadline in %d days", a.Company, days)
		msg = fmt.Sprintf("The deadline for %s at %s is in %d days.", a.Role, a.Company, days)
	}
	return &Suggestion{
		Key:           fmt.Sprintf("deadline:%s", a.ID),
		Type:          TypeDeadline,
		Priority:      prio,
		ApplicationID: a.ID,
		Title:         title,
		Message:       msg,
	}
}

// platformSuggestion surfaces the best-by-interview-rate platform when
// enough platforms qualify and the best one clears the rate floor.
func platformSuggestion(platforms []analytics.PlatformMetric) *Suggestion {
	var qualifying []analytics.PlatformMetric
	for _, p := range platforms {
		if p.Total >= minAppsPerGroup {
			qualifying = append(qualifying, p)
		}
	}
	if len(qualifying) < minGroups {
		return nil
	}
	best := qualifying[0]
	for _, p := range qualifying[1:] {
		if p.InterviewRate > best.InterviewRate {
			best = p
		}
	}
	if best.InterviewRate < platformRateFloor {
		return nil
	}
	return &Suggestion{
		Key:      fmt.Sprintf("platform_insight:%s", best.Platform),
		Type:     TypePlatformInsight,
		Priority: PriorityLow,
		Title:    fmt.Sprintf("Double down on %s", best.Platform),
		Message: fmt.Sprintf(
			"%s gets you interviews %d%% of the time — your best channel. Prioritise it for new applications.",
			best.Platform, best.InterviewRate),
	}
}

// roleSuggestion surfaces the best-by-conversion-rate role. Wording
// branches: success framing when conversions exist, traction framing when
// interviews are happening but nothing has converted yet.
func roleSuggestion(roles []analytics.RoleMetric) *Suggestion {
	var qualifying []analytics.RoleMetric
	for _, r := range roles {
		if r.Total >= minAppsPerGroup {
			qualifying = append(qualifying, r)
		}
	}
	if len(qualifying) < minGroups {
		return nil
	}
	best := qualifying[0]
	for _, r := range qualifying[1:] {
		if r.ConversionRate > best.ConversionRate {
			best = r
		}
	}

	s := Suggestion{
		Key:      fmt.Sprintf("role_insight:%s", best.Role),
		Type:     TypeRoleInsight,
		Priority: PriorityLow,
	}
	switch {
	case best.ConversionRate > 0:
		s.Title = fmt.Sprintf("%s roles are converting", best.Role)
		s.Message = fmt.Sprintf(
			"%d%% of your %s applications end in an offer you accepted. Lean into this role.",
			best.ConversionRate, best.Role)
	case best.Interviews >= tractionInterviews:
		s.Title = fmt.Sprintf("%s roles show traction", best.Role)
		s.Message = fmt.Sprintf(
			"%d interviews for %s roles and no conversion yet — you are close. Focus on interview prep.",
			best.Interviews, best.Role)
	default:
		return nil
	}
	return &s
}

// Filter removes suggestions the user has dismissed or snoozed. An expired
// snooze no longer matches, so the suggestion resurfaces.
func Filter(suggestions []Suggestion, actions []model.SuggestionAction, now time.Time) []Suggestion {
	blocked := map[string]bool{}
	for _, a := range actions {
		switch a.Action {
		case model.ActionDismissed:
			blocked[a.Key] = true
		case model.ActionSnoozed:
			if a.SnoozeUntil != nil && a.SnoozeUntil.After(now) {
				blocked[a.Key] = true
			}
		}
	}

	out := make([]Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if !blocked[s.Key] {
			out = append(out, s)
		}
	}
	return out
}

// daysUntil counts whole calendar days from now's date to target's date.
// Negative for past dates, zero for today.
func daysUntil(now, target time.Time) int {
	ny, nm, nd := now.UTC().Date()
	ty, tm, td := target.UTC().Date()
	from := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	to := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
