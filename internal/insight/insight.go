// Package insight turns an analytics snapshot into human-readable career
// insights. Generation is a pure function: no persistence, no clock, fully
// deterministic for a given snapshot.
//
// Every rule is gated by a minimum sample size so tiny datasets don't
// produce noisy conclusions.
package insight

import (
	"fmt"

	"trackline/tracker-service/internal/analytics"
)

// Category groups insights by the dimension they describe.
type Category string

const (
	CategoryPlatform   Category = "platform"
	CategoryRole       Category = "role"
	CategoryTimeline   Category = "timeline"
	CategoryConversion Category = "conversion"
	CategoryGeneral    Category = "general"
)

// Tone drives presentation (and the balanced-sample cap).
type Tone string

const (
	TonePositive Tone = "positive"
	ToneWarning  Tone = "warning"
	ToneNeutral  Tone = "neutral"
)

// Insight is one generated observation.
type Insight struct {
	Category Category `json:"category"`
	Tone     Tone     `json:"tone"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
}

// Sample-size gates.
const (
	minAppsPerPlatform     = 2
	minQualifyingPlatforms = 2
	zeroSuccessPlatformMin = 3
	minAppsPerRole         = 2
	deadRoleMin            = 5
	minAppsForResponseRate = 5
	minAppsForResponseTime = 3
	minAppsForConversion   = 3
	dropOffFloor           = 50 // percentage points
	dropOffStageMin        = 3
	highInterviewRate      = 30
	platformGapFloor       = 15 // percentage points
	diversifiedPlatforms   = 3
	diversifiedApps        = 10
	scatteredRoles         = 5
	focusedRoleApps        = 5
	volumeMilestone        = 20
)

// Generate derives every applicable insight from the snapshot, in category
// order: platform, role, timeline, conversion, general.
func Generate(snap analytics.Snapshot) []Insight {
	var out []Insight
	out = append(out, platformInsights(snap)...)
	out = append(out, roleInsights(snap)...)
	out = append(out, timelineInsights(snap)...)
	out = append(out, conversionInsights(snap)...)
	out = append(out, generalInsights(snap)...)
	return out
}

func platformInsights(snap analytics.Snapshot) []Insight {
	var qualifying []analytics.PlatformMetric
	for _, p := range snap.Platforms {
		if p.Total >= minAppsPerPlatform {
			qualifying = append(qualifying, p)
		}
	}

	var out []Insight
	if len(qualifying) >= minQualifyingPlatforms {
		best, worst := qualifying[0], qualifying[0]
		for _, p := range qualifying[1:] {
			if p.InterviewRate > best.InterviewRate {
				best = p
			}
			if p.InterviewRate < worst.InterviewRate {
				worst = p
			}
		}
		if best.InterviewRate-worst.InterviewRate >= platformGapFloor {
			out = append(out, Insight{
				Category: CategoryPlatform,
				Tone:     TonePositive,
				Title:    fmt.Sprintf("%s is working for you", best.Platform),
				Message: fmt.Sprintf(
					"Applications via %s reach interviews %d%% of the time versus %d%% on %s. Consider focusing your search there.",
					best.Platform, best.InterviewRate, worst.InterviewRate, worst.Platform),
			})
		}
	}

	for _, p := range snap.Platforms {
		if p.Total >= zeroSuccessPlatformMin && p.InterviewRate == 0 {
			out = append(out, Insight{
				Category: CategoryPlatform,
				Tone:     ToneWarning,
				Title:    fmt.Sprintf("No traction on %s", p.Platform),
				Message: fmt.Sprintf(
					"%d applications via %s have not produced a single interview. It may be worth trying a different channel.",
					p.Total, p.Platform),
			})
		}
	}
	return out
}

func roleInsights(snap analytics.Snapshot) []Insight {
	var qualifying []analytics.RoleMetric
	for _, r := range snap.Roles {
		if r.Total >= minAppsPerRole {
			qualifying = append(qualifying, r)
		}
	}

	var out []Insight
	if len(qualifying) >= 2 {
		best := qualifying[0]
		for _, r := range qualifying[1:] {
			if r.ConversionRate > best.ConversionRate {
				best = r
			}
		}
		if best.ConversionRate > 0 {
			out = append(out, Insight{
				Category: CategoryRole,
				Tone:     TonePositive,
				Title:    fmt.Sprintf("Strongest conversion: %s", best.Role),
				Message: fmt.Sprintf(
					"%s applications convert to offers %d%% of the time — your best-performing role.",
					best.Role, best.ConversionRate),
			})
		}
	}

	for _, r := range qualifying {
		if r.InterviewRate >= highInterviewRate {
			out = append(out, Insight{
				Category: CategoryRole,
				Tone:     TonePositive,
				Title:    fmt.Sprintf("%s interviews are coming easily", r.Role),
				Message: fmt.Sprintf(
					"A %d%% interview rate for %s roles suggests your profile fits — keep applying.",
					r.InterviewRate, r.Role),
			})
		}
	}

	for _, r := range snap.Roles {
		if r.Total >= deadRoleMin && r.Interviews == 0 {
			out = append(out, Insight{
				Category: CategoryRole,
				Tone:     ToneWarning,
				Title:    fmt.Sprintf("%s applications are stalling", r.Role),
				Message: fmt.Sprintf(
					"%d %s applications with zero interviews. Revisit your resume for this role or adjust targeting.",
					r.Total, r.Role),
			})
		}
	}
	return out
}

func timelineInsights(snap analytics.Snapshot) []Insight {
	var out []Insight
	if snap.TotalApplications >= minAppsForResponseRate {
		switch {
		case snap.ResponseRate >= 50:
			out = append(out, Insight{
				Category: CategoryTimeline,
				Tone:     TonePositive,
				Title:    "Strong response rate",
				Message: fmt.Sprintf(
					"%d%% of your applications get a response — well above typical.",
					snap.ResponseRate),
			})
		case snap.ResponseRate < 20:
			out = append(out, Insight{
				Category: CategoryTimeline,
				Tone:     ToneWarning,
				Title:    "Low response rate",
				Message: fmt.Sprintf(
					"Only %d%% of applications get a response. Tailoring each application may help.",
					snap.ResponseRate),
			})
		}
	}

	if snap.TotalApplications >= minAppsForResponseTime && snap.AvgResponseDays > 0 {
		switch {
		case snap.AvgResponseDays <= 7:
			out = append(out, Insight{
				Category: CategoryTimeline,
				Tone:     TonePositive,
				Title:    "Fast responses",
				Message: fmt.Sprintf(
					"Companies respond in %.0f days on average — your applications are landing in active pipelines.",
					snap.AvgResponseDays),
			})
		case snap.AvgResponseDays > 21:
			out = append(out, Insight{
				Category: CategoryTimeline,
				Tone:     ToneNeutral,
				Title:    "Slow-moving pipelines",
				Message: fmt.Sprintf(
					"Average response time is %.0f days. Follow up proactively rather than waiting.",
					snap.AvgResponseDays),
			})
		}
	}
	return out
}

// conversionInsights reports the single largest drop-off between adjacent
// funnel stages, provided the prior stage has enough applications and the
// drop is steep enough to be meaningful.
func conversionInsights(snap analytics.Snapshot) []Insight {
	if snap.TotalApplications < minAppsForConversion {
		return nil
	}

	bestIdx, bestDrop := -1, 0
	for i := 0; i+1 < len(snap.Funnel); i++ {
		if snap.Funnel[i].Count < dropOffStageMin {
			continue
		}
		drop := snap.Funnel[i].Percentage - snap.Funnel[i+1].Percentage
		if drop >= dropOffFloor && drop > bestDrop {
			bestIdx, bestDrop = i, drop
		}
	}
	if bestIdx < 0 {
		return nil
	}

	from, to := snap.Funnel[bestIdx], snap.Funnel[bestIdx+1]
	return []Insight{{
		Category: CategoryConversion,
		Tone:     ToneWarning,
		Title:    fmt.Sprintf("Big drop between %s and %s", from.Stage, to.Stage),
		Message: fmt.Sprintf(
			"%d applications reached %s but only %d advanced to %s (a %d-point drop). This is the stage to work on.",
			from.Count, from.Stage, to.Count, to.Stage, bestDrop),
	}}
}

func generalInsights(snap analytics.Snapshot) []Insight {
	var out []Insight
	if len(snap.Platforms) >= diversifiedPlatforms && snap.TotalApplications >= diversifiedApps {
		out = append(out, Insight{
			Category: CategoryGeneral,
			Tone:     TonePositive,
			Title:    "Well-diversified search",
			Message: fmt.Sprintf(
				"You are applying across %d platforms — good coverage of the market.",
				len(snap.Platforms)),
		})
	}
	if len(snap.Roles) > scatteredRoles && snap.TotalApplications >= diversifiedApps {
		out = append(out, Insight{
			Category: CategoryGeneral,
			Tone:     ToneNeutral,
			Title:    "Search is spread thin",
			Message: fmt.Sprintf(
				"Applications span %d different roles. Narrowing focus can make each application stronger.",
				len(snap.Roles)),
		})
	}
	if len(snap.Roles) == 1 && snap.TotalApplications >= focusedRoleApps {
		out = append(out, Insight{
			Category: CategoryGeneral,
			Tone:     ToneNeutral,
			Title:    "Single-role focus",
			Message: fmt.Sprintf(
				"All %d applications target %s. Deep focus is fine — just make sure the market is big enough.",
				snap.TotalApplications, snap.Roles[0].Role),
		})
	}
	if snap.TotalApplications >= volumeMilestone {
		out = append(out, Insight{
			Category: CategoryGeneral,
			Tone:     TonePositive,
			Title:    "Milestone reached",
			Message: fmt.Sprintf(
				"%d applications logged. Consistency is the biggest predictor of offers — keep going.",
				snap.TotalApplications),
		})
	}
	return out
}

// TopBalanced caps the generated list for display: at most perTone insights
// from each tone, at most limit overall, preserving generation order. This
// is presentation policy layered on top of Generate, not part of it.
func TopBalanced(insights []Insight, perTone, limit int) []Insight {
	taken := map[Tone]int{}
	var out []Insight
	for _, in := range insights {
		if len(out) >= limit {
			break
		}
		if taken[in.Tone] >= perTone {
			continue
		}
		taken[in.Tone]++
		out = append(out, in)
	}
	return out
}
