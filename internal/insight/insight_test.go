package insight_test

import (
	"strings"
	"testing"

	"trackline/tracker-service/internal/analytics"
	"trackline/tracker-service/internal/insight"
	"trackline/tracker-service/internal/pipeline"
)

func findByCategory(ins []insight.Insight, c insight.Category) []insight.Insight {
	var out []insight.Insight
	for _, i := range ins {
		if i.Category == c {
			out = append(out, i)
		}
	}
	return out
}

// ── Platform rules ─────────────────────────────────────────────────────────

func TestGenerate_PlatformGap(t *testing.T) {
	snap := analytics.Snapshot{
		TotalApplications: 8,
		Platforms: []analytics.PlatformMetric{
			{Platform: "Referral", Total: 4, InterviewRate: 50},
			{Platform: "Indeed", Total: 4, InterviewRate: 25},
		},
	}
	got := findByCategory(insight.Generate(snap), insight.CategoryPlatform)
	if len(got) != 1 {
		t.Fatalf("got %d platform insights, want 1", len(got))
	}
	if got[0].Tone != insight.TonePositive || !strings.Contains(got[0].Message, "Referral") {
		t.Errorf("unexpected insight: %+v", got[0])
	}
}

func TestGenerate_PlatformGapBelowThreshold(t *testing.T) {
	snap := analytics.Snapshot{
		TotalApplications: 8,
		Platforms: []analytics.PlatformMetric{
			{Platform: "Referral", Total: 4, InterviewRate: 40},
			{Platform: "Indeed", Total: 4, InterviewRate: 30}, // gap 10 < 15
		},
	}
	if got := findByCategory(insight.Generate(snap), insight.CategoryPlatform); len(got) != 0 {
		t.Errorf("gap below 15 points should produce no insight, got %+v", got)
	}
}

func TestGenerate_PlatformNeedsTwoQualifying(t *testing.T) {
	snap := analytics.Snapshot{
		TotalApplications: 3,
		Platforms: []analytics.PlatformMetric{
			{Platform: "Referral", Total: 2, InterviewRate: 100},
			{Platform: "Indeed", Total: 1, InterviewRate: 0}, // below 2-app gate
		},
	}
	if got := findByCategory(insight.Generate(snap), insight.CategoryPlatform); len(got) != 0 {
		t.Errorf("single qualifying platform should produce no comparison, got %+v", got)
	}
}

func TestGenerate_ZeroSuccessPlatform(t *testing.T) {
	snap := analytics.Snapshot{
		TotalApplications: 3,
		Platforms: []analytics.PlatformMetric{
			{Platform: "Indeed", Total: 3, InterviewRate: 0},
		},
	}
	got := findByCategory(insight.Generate(snap), insight.CategoryPlatform)
	if len(got) != 1 || got[0].Tone != insight.ToneWarning {
		t.Fatalf("want one warning for zero-success platform, got %+v", got)
	}
}

// ── Role rules ─────────────────────────────────────────────────────────────

func TestGenerate_RoleBestConversion(t *testing.T) {
	snap := analytics.Snapshot{
		TotalApplications: 6,
		Roles: []analytics.RoleMetric{
			{Role: "SWE", Total: 3, ConversionRate: 33, InterviewRate: 0},
			{Role: "PM", Total: 3, ConversionRate: 0, InterviewRate: 0},
		},
	}
	got := findByCategory(insight.Generate(snap), insight.CategoryRole)
	if len(got) != 1 {
		t.Fatalf("got %d role insights, want 1", len(got))
	}
	if got[0].Tone != insight.TonePositive || !strings.Contains(got[0].Title, "SWE") {
		t.Errorf("unexpected insight: %+v", got[0])
	}
}

func TestGenerate_RoleHighInterviewRate(t *testing.T) {
	snap := analytics.Snapshot{
		TotalApplications: 4,
		Roles: []analytics.RoleMetric{
			{Role: "Data", Total: 4, InterviewRate: 50},
		},
	}
	got := findByCategory(insight.Generate(snap), insight.CategoryRole)
	if len(got) != 1 || got[0].Tone != insight.TonePositive {
		t.Fatalf("want one validating insight for 50%% interview rate, got %+v", got)
	}
}

func TestGenerate_DeadRoleWarning(t *testing.T) {
	snap := analytics.Snapshot{
		TotalApplications: 5,
		Roles: []analytics.RoleMetric{
			{Role: "SWE", Total: 5, Interviews: 0, InterviewRate: 0},
		},
	}
	got := findByCategory(insight.Generate(snap), insight.CategoryRole)
	if len(got) != 1 || got[0].Tone != insight.ToneWarning {
		t.Fatalf("want one warning for 5 applications with zero interviews, got %+v", got)
	}
}

// ── Timeline rules ─────────────────────────────────────────────────────────

func TestGenerate_TimelineGates(t *testing.T) {
	cases := []struct {
		name     string
		total    int
		rate     int
		avgDays  float64
		wantTone []insight.Tone
	}{
		{"too few apps for rate", 4, 10, 0, nil},
		{"strong rate", 5, 60, 0, []insight.Tone{insight.TonePositive}},
		{"weak rate", 5, 10, 0, []insight.Tone{insight.ToneWarning}},
		{"middling rate", 5, 35, 0, nil},
		{"fast responses", 3, 30, 5, []insight.Tone{insight.TonePositive}},
		{"slow responses", 3, 30, 30, []insight.Tone{insight.ToneNeutral}},
		{"weak rate and slow", 5, 10, 30, []insight.Tone{insight.ToneWarning, insight.ToneNeutral}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			snap := analytics.Snapshot{
				TotalApplications: c.total,
				ResponseRate:      c.rate,
				AvgResponseDays:   c.avgDays,
			}
			got := findByCategory(insight.Generate(snap), insight.CategoryTimeline)
			if len(got) != len(c.wantTone) {
				t.Fatalf("got %d timeline insights, want %d: %+v", len(got), len(c.wantTone), got)
			}
			for i, tone := range c.wantTone {
				if got[i].Tone != tone {
					t.Errorf("insight[%d].Tone = %s, want %s", i, got[i].Tone, tone)
				}
			}
		})
	}
}

// ── Conversion rule ────────────────────────────────────────────────────────

func TestGenerate_ConversionDropOff(t *testing.T) {
	snap := analytics.Snapshot{
		TotalApplications: 10,
		Funnel: []analytics.StageCount{
			{Stage: pipeline.StatusApplied, Count: 10, Percentage: 100},
			{Stage: pipeline.StatusOA, Count: 8, Percentage: 80},
			{Stage: pipeline.StatusInterview, Count: 1, Percentage: 10}, // 70-point drop
			{Stage: pipeline.StatusOffer, Count: 0, Percentage: 0},
			{Stage: pipeline.StatusAccepted, Count: 0, Percentage: 0},
		},
	}
	got := findByCategory(insight.Generate(snap), insight.CategoryConversion)
	if len(got) != 1 {
		t.Fatalf("got %d conversion insights, want exactly 1", len(got))
	}
	if !strings.Contains(got[0].Title, "OA") || !strings.Contains(got[0].Title, "INTERVIEW") {
		t.Errorf("insight should name the OA→INTERVIEW gap: %+v", got[0])
	}
}

func TestGenerate_ConversionIgnoresThinStages(t *testing.T) {
	snap := analytics.Snapshot{
		TotalApplications: 3,
		Funnel: []analytics.StageCount{
			{Stage: pipeline.StatusApplied, Count: 3, Percentage: 100},
			{Stage: pipeline.StatusOA, Count: 2, Percentage: 67}, // only 2 apps at OA
			{Stage: pipeline.StatusInterview, Count: 0, Percentage: 0},
			{Stage: pipeline.StatusOffer, Count: 0, Percentage: 0},
			{Stage: pipeline.StatusAccepted, Count: 0, Percentage: 0},
		},
	}
	// APPLIED→OA drop is 33 (<50); OA→INTERVIEW drop is 67 but OA has <3 apps.
	if got := findByCategory(insight.Generate(snap), insight.CategoryConversion); len(got) != 0 {
		t.Errorf("thin stages should not trigger drop-off insight, got %+v", got)
	}
}

// ── General rules ──────────────────────────────────────────────────────────

func TestGenerate_GeneralMilestones(t *testing.T) {
	snap := analytics.Snapshot{
		TotalApplications: 20,
		Platforms: []analytics.PlatformMetric{
			{Platform: "LinkedIn", Total: 10}, {Platform: "Indeed", Total: 6}, {Platform: "Referral", Total: 4},
		},
		Roles: []analytics.RoleMetric{{Role: "SWE", Total: 20}},
	}
	got := findByCategory(insight.Generate(snap), insight.CategoryGeneral)
	// Diversified platforms + single-role focus + volume milestone.
	if len(got) != 3 {
		t.Fatalf("got %d general insights, want 3: %+v", len(got), got)
	}
}

// ── TopBalanced ────────────────────────────────────────────────────────────

func TestTopBalanced(t *testing.T) {
	ins := []insight.Insight{
		{Tone: insight.TonePositive, Title: "p1"},
		{Tone: insight.TonePositive, Title: "p2"},
		{Tone: insight.TonePositive, Title: "p3"},
		{Tone: insight.ToneWarning, Title: "w1"},
		{Tone: insight.ToneWarning, Title: "w2"},
		{Tone: insight.ToneWarning, Title: "w3"},
		{Tone: insight.ToneNeutral, Title: "n1"},
	}
	got := insight.TopBalanced(ins, 2, 5)
	if len(got) != 5 {
		t.Fatalf("got %d insights, want 5", len(got))
	}
	want := []string{"p1", "p2", "w1", "w2", "n1"}
	for i := range want {
		if got[i].Title != want[i] {
			t.Errorf("TopBalanced[%d] = %s, want %s", i, got[i].Title, want[i])
		}
	}
}

func TestGenerate_EmptySnapshot(t *testing.T) {
	if got := insight.Generate(analytics.Snapshot{}); len(got) != 0 {
		t.Errorf("empty snapshot should produce no insights, got %+v", got)
	}
}
