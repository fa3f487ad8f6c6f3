// Package analytics derives funnel, platform, role, outcome and
// time-in-status metrics by replaying a user's application event log.
//
// Every call replays from scratch: there is no cache and no incremental
// update. Funnel membership is cumulative — an application that reached
// INTERVIEW and was later rejected still counts in the INTERVIEW bucket.
// The funnel measures "ever reached stage X", not "currently at stage X".
package analytics

import (
	"math"
	"sort"
	"time"

	"trackline/tracker-service/internal/event"
	"trackline/tracker-service/internal/pipeline"
)

// OtherPlatform is the grouping bucket for applications without a platform.
const OtherPlatform = "Other"

// FunnelStages is the ordered set of stages the conversion funnel reports.
// REJECTED is an outcome, not a funnel stage.
var FunnelStages = []pipeline.Status{
	pipeline.StatusApplied,
	pipeline.StatusOA,
	pipeline.StatusInterview,
	pipeline.StatusOffer,
	pipeline.StatusAccepted,
}

// StageCount is one funnel row.
type StageCount struct {
	Stage      pipeline.Status `json:"stage"`
	Count      int             `json:"count"`
	Percentage int             `json:"percentage"`
}

// PlatformMetric aggregates applications sharing a platform.
type PlatformMetric struct {
	Platform      string `json:"platform"`
	Total         int    `json:"total"`
	Interviews    int    `json:"interviews"` // reached INTERVIEW or later
	Offers        int    `json:"offers"`     // reached OFFER or later
	InterviewRate int    `json:"interviewRate"`
	OfferRate     int    `json:"offerRate"`
}

// RoleMetric aggregates applications sharing a role.
type RoleMetric struct {
	Role           string `json:"role"`
	Total          int    `json:"total"`
	Interviews     int    `json:"interviews"`
	Offers         int    `json:"offers"`
	Accepted       int    `json:"accepted"`
	InterviewRate  int    `json:"interviewRate"`
	OfferRate      int    `json:"offerRate"`
	ConversionRate int    `json:"conversionRate"` // accepted / total
}

// OutcomeRates summarises terminal outcomes across all applications.
type OutcomeRates struct {
	Accepted    int `json:"accepted"`
	Rejected    int `json:"rejected"`
	Pending     int `json:"pending"`
	AcceptedPct int `json:"acceptedPct"`
	RejectedPct int `json:"rejectedPct"`
	PendingPct  int `json:"pendingPct"`
}

// StatusDuration reports how long applications sit in one status, in days.
type StatusDuration struct {
	Status  pipeline.Status `json:"status"`
	Samples int             `json:"samples"`
	AvgDays float64         `json:"avgDays"`
	MinDays float64         `json:"minDays"`
	MaxDays float64         `json:"maxDays"`
}

// Snapshot is the full analytics value for one user. It is always fully
// populated: zero events yields zero counts with all five funnel stages
// present, never a nil field.
type Snapshot struct {
	TotalApplications int              `json:"totalApplications"`
	Funnel            []StageCount     `json:"funnel"`
	Platforms         []PlatformMetric `json:"platforms"`
	Roles             []RoleMetric     `json:"roles"`
	Outcomes          OutcomeRates     `json:"outcomes"`
	TimeInStatus      []StatusDuration `json:"timeInStatus"`
	ResponseRate      int              `json:"responseRate"`    // % of applications that moved past APPLIED
	AvgResponseDays   float64          `json:"avgResponseDays"` // mean days from creation to first response
}

// ─── Replay accumulator ──────────────────────────────────────────────────────

// appState accumulates one application's trail during replay.
type appState struct {
	platform string
	role     string
	reached  map[pipeline.Status]bool

	// entries records each status entry in replay order, for the
	// time-in-status and response-time derivations.
	entries []statusEntry
}

type statusEntry struct {
	status pipeline.Status
	at     time.Time
}

// Compute replays the user's full event stream and derives every metric.
// Events may arrive in any order; they are sorted by creation timestamp
// (insertion order as tiebreak) before replay. now closes the open
// time-in-status interval of each application's current status.
func Compute(events []event.UserEvent, now time.Time) Snapshot {
	ordered := make([]event.UserEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	apps := map[string]*appState{}
	var appOrder []string
	for _, ev := range ordered {
		st, ok := apps[ev.ApplicationID]
		if !ok {
			// Platform and role are immutable join fields, so the first
			// event seen carries the authoritative values.
			st = &appState{
				platform: ev.Platform,
				role:     ev.Role,
				reached:  map[pipeline.Status]bool{},
			}
			apps[ev.ApplicationID] = st
			appOrder = append(appOrder, ev.ApplicationID)
		}
		switch ev.Type {
		case event.TypeCreated:
			st.reached[pipeline.StatusApplied] = true
			st.entries = append(st.entries, statusEntry{pipeline.StatusApplied, ev.CreatedAt})
		case event.TypeStatusChange:
			if ev.NewValue == nil {
				continue
			}
			s := pipeline.Status(*ev.NewValue)
			if !pipeline.IsKnown(s) {
				continue
			}
			st.reached[s] = true
			st.entries = append(st.entries, statusEntry{s, ev.CreatedAt})
		}
	}

	snap := Snapshot{
		TotalApplications: len(apps),
		Funnel:            funnel(apps),
		Platforms:         platformMetrics(apps, appOrder),
		Roles:             roleMetrics(apps, appOrder),
		Outcomes:          outcomes(apps),
		TimeInStatus:      timeInStatus(apps, now),
	}
	snap.ResponseRate, snap.AvgResponseDays = responseStats(apps)
	return snap
}

// ─── Funnel ──────────────────────────────────────────────────────────────────

// reachedAtOrLater reports whether the application ever reached the given
// funnel stage or any stage beyond it. ACCEPTED counts toward every stage.
func (a *appState) reachedAtOrLater(stage pipeline.Status) bool {
	hit := false
	for _, s := range FunnelStages {
		if s == stage {
			hit = true
		}
		if hit && a.reached[s] {
			return true
		}
	}
	return false
}

func funnel(apps map[string]*appState) []StageCount {
	counts := make([]int, len(FunnelStages))
	for _, a := range apps {
		for i, stage := range FunnelStages {
			if a.reachedAtOrLater(stage) {
				counts[i]++
			}
		}
	}

	applied := counts[0]
	out := make([]StageCount, len(FunnelStages))
	for i, stage := range FunnelStages {
		pct := 0
		if i == 0 {
			// Legacy contract: the APPLIED stage reports 100% even when
			// there are zero applications.
			pct = 100
		} else if applied > 0 {
			pct = roundPct(counts[i], applied)
		}
		out[i] = StageCount{Stage: stage, Count: counts[i], Percentage: pct}
	}
	return out
}

// ─── Platform / role grouping ────────────────────────────────────────────────

func platformMetrics(apps map[string]*appState, order []string) []PlatformMetric {
	groups := map[string]*PlatformMetric{}
	var names []string
	for _, id := range order {
		a := apps[id]
		name := a.platform
		if name == "" {
			name = OtherPlatform
		}
		m, ok := groups[name]
		if !ok {
			m = &PlatformMetric{Platform: name}
			groups[name] = m
			names = append(names, name)
		}
		m.Total++
		if a.reachedAtOrLater(pipeline.StatusInterview) {
			m.Interviews++
		}
		if a.reachedAtOrLater(pipeline.StatusOffer) {
			m.Offers++
		}
	}

	out := make([]PlatformMetric, 0, len(groups))
	for _, name := range names {
		m := groups[name]
		m.InterviewRate = roundPct(m.Interviews, m.Total)
		m.OfferRate = roundPct(m.Offers, m.Total)
		out = append(out, *m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}

func roleMetrics(apps map[string]*appState, order []string) []RoleMetric {
	groups := map[string]*RoleMetric{}
	var names []string
	for _, id := range order {
		a := apps[id]
		name := a.role
		m, ok := groups[name]
		if !ok {
			m = &RoleMetric{Role: name}
			groups[name] = m
			names = append(names, name)
		}
		m.Total++
		if a.reachedAtOrLater(pipeline.StatusInterview) {
			m.Interviews++
		}
		if a.reachedAtOrLater(pipeline.StatusOffer) {
			m.Offers++
		}
		if a.reached[pipeline.StatusAccepted] {
			m.Accepted++
		}
	}

	out := make([]RoleMetric, 0, len(groups))
	for _, name := range names {
		m := groups[name]
		m.InterviewRate = roundPct(m.Interviews, m.Total)
		m.OfferRate = roundPct(m.Offers, m.Total)
		m.ConversionRate = roundPct(m.Accepted, m.Total)
		out = append(out, *m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Role < out[j].Role
	})
	return out
}

// ─── Outcomes ────────────────────────────────────────────────────────────────

func outcomes(apps map[string]*appState) OutcomeRates {
	var o OutcomeRates
	for _, a := range apps {
		switch {
		case a.reached[pipeline.StatusAccepted]:
			o.Accepted++
		case a.reached[pipeline.StatusRejected]:
			o.Rejected++
		default:
			o.Pending++
		}
	}
	total := o.Accepted + o.Rejected + o.Pending
	if total == 0 {
		return o
	}
	// Each percentage comes from its own count so pending never absorbs
	// the rounding drift of the other two.
	o.AcceptedPct = roundPct(o.Accepted, total)
	o.RejectedPct = roundPct(o.Rejected, total)
	o.PendingPct = roundPct(o.Pending, total)
	return o
}

// ─── Time in status / response stats ─────────────────────────────────────────

// timeInStatus measures, per status, the days between entering a status and
// the next status-defining event (or now for the still-current status).
func timeInStatus(apps map[string]*appState, now time.Time) []StatusDuration {
	type agg struct {
		sum     float64
		min     float64
		max     float64
		samples int
	}
	byStatus := map[pipeline.Status]*agg{}

	for _, a := range apps {
		for i, entry := range a.entries {
			exit := now
			if i+1 < len(a.entries) {
				exit = a.entries[i+1].at
			}
			days := exit.Sub(entry.at).Hours() / 24
			if days < 0 {
				days = 0
			}
			g, ok := byStatus[entry.status]
			if !ok {
				g = &agg{min: days, max: days}
				byStatus[entry.status] = g
			}
			if days < g.min {
				g.min = days
			}
			if days > g.max {
				g.max = days
			}
			g.sum += days
			g.samples++
		}
	}

	out := make([]StatusDuration, 0, len(byStatus))
	for _, s := range pipeline.AllStatuses {
		g, ok := byStatus[s]
		if !ok {
			continue
		}
		out = append(out, StatusDuration{
			Status:  s,
			Samples: g.samples,
			AvgDays: g.sum / float64(g.samples),
			MinDays: g.min,
			MaxDays: g.max,
		})
	}
	return out
}

// responseStats reports the share of applications that moved past APPLIED
// and the mean days from creation to that first movement.
func responseStats(apps map[string]*appState) (rate int, avgDays float64) {
	total := len(apps)
	if total == 0 {
		return 0, 0
	}
	responded := 0
	var daysSum float64
	for _, a := range apps {
		if len(a.entries) < 2 {
			continue
		}
		responded++
		daysSum += a.entries[1].at.Sub(a.entries[0].at).Hours() / 24
	}
	rate = roundPct(responded, total)
	if responded > 0 {
		avgDays = daysSum / float64(responded)
	}
	return rate, avgDays
}

func roundPct(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
