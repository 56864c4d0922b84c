package rules_test

import (
	"strings"
	"testing"
	"time"

	"jobmate/ghostjob-service/internal/model"
	"jobmate/ghostjob-service/internal/rules"
)

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func timePtr(t time.Time) *time.Time { return &t }

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

// ── Table ──────────────────────────────────────────────────────────────────

func TestNew_TenRulesInOrder(t *testing.T) {
	rs := rules.New(rules.DefaultParams())
	if len(rs) != 10 {
		t.Fatalf("New returned %d rules, want 10", len(rs))
	}
	want := []int{30, 20, 25, 15, 15, 10, 10, 20, 5, 15}
	total := 0
	for i, r := range rs {
		if r.ID != i+1 {
			t.Errorf("rule %d has ID %d", i, r.ID)
		}
		if r.Weight != want[i] {
			t.Errorf("rule %d weight = %d, want %d", r.ID, r.Weight, want[i])
		}
		total += r.Weight
	}
	if total != rules.MaxScore || rules.MaxScore != 165 {
		t.Errorf("weights sum to %d, MaxScore = %d, want 165", total, rules.MaxScore)
	}
}

func TestEvaluate_NotFiredContributesNothing(t *testing.T) {
	r := rules.New(rules.DefaultParams())[0]
	c := r.Evaluate(model.JobPosting{DaysSincePosted: intPtr(1)})
	if c.Fired || c.Points != 0 || c.Reason != "" {
		t.Errorf("unfired rule contributed %+v", c)
	}
}

func TestEvaluate_FiredContributesExactWeight(t *testing.T) {
	r := rules.New(rules.DefaultParams())[0]
	c := r.Evaluate(model.JobPosting{DaysSincePosted: intPtr(50)})
	if !c.Fired || c.Points != rules.WeightJobAge {
		t.Errorf("fired rule contributed %+v", c)
	}
	if c.Reason != "Posted 50 days ago" {
		t.Errorf("reason = %q", c.Reason)
	}
}

// ── Rule 1: job age ────────────────────────────────────────────────────────

func TestIsOld(t *testing.T) {
	cases := []struct {
		days *int
		want bool
	}{
		{nil, false},
		{intPtr(0), false},
		{intPtr(45), false},
		{intPtr(46), true},
		{intPtr(400), true},
	}
	for _, tc := range cases {
		if got := rules.IsOld(tc.days, 45); got != tc.want {
			t.Errorf("IsOld(%v) = %v, want %v", tc.days, got, tc.want)
		}
	}
}

// ── Rule 2 and 6: thresholds ───────────────────────────────────────────────

func TestIsShortDescription(t *testing.T) {
	if !rules.IsShortDescription(29, 30) {
		t.Error("29 words should be short")
	}
	if rules.IsShortDescription(30, 30) {
		t.Error("30 words should not be short")
	}
	if !rules.IsShortDescription(0, 30) {
		t.Error("an empty description should be short")
	}
}

func TestHasFewKeywords(t *testing.T) {
	if !rules.HasFewKeywords(1, 2) {
		t.Error("1 keyword should be few")
	}
	if rules.HasFewKeywords(2, 2) {
		t.Error("2 keywords should not be few")
	}
}

// ── Rule 3: suspicious company ─────────────────────────────────────────────

func TestIsSuspiciousCompany(t *testing.T) {
	cases := []struct {
		company, sourceCompany string
		want                   bool
	}{
		{"Acme Staffing Solutions", "", true},
		{"TALENT Hub", "", true},
		{"", "bestrecruitment", true},
		{"Tech Corp", "", false},
		{"Nokia", "nokia", false},
		{"", "", false},
	}
	for _, tc := range cases {
		_, got := rules.IsSuspiciousCompany(tc.company, tc.sourceCompany)
		if got != tc.want {
			t.Errorf("IsSuspiciousCompany(%q, %q) = %v, want %v", tc.company, tc.sourceCompany, got, tc.want)
		}
	}
}

// ── Rule 4: vague salary ───────────────────────────────────────────────────

func TestHasVagueSalary(t *testing.T) {
	cases := []struct {
		name   string
		desc   string
		min    *float64
		strict bool
		want   bool
	}{
		{"competitive only", "We offer a competitive package.", nil, false, true},
		{"doe", "Salary DOE.", nil, false, true},
		{"doe inside word", "Contact Jane Doesburg.", nil, false, false},
		{"dollar range", "Pay: $80k-$100k plus competitive benefits.", nil, false, false},
		{"euro range", "Salary 4 000 - 5 500 € per month, negotiable.", nil, false, false},
		{"code range", "EUR 60,000 to 75,000 depending on experience.", nil, false, false},
		{"k range", "Budget 60k-75k, negotiable.", nil, false, false},
		{"structured salary", "Competitive.", floatPtr(50000), false, false},
		{"no mention lenient", "Build pipelines.", nil, false, false},
		{"no mention strict", "Build pipelines.", nil, true, true},
		{"mention strict", "Salary paid monthly.", nil, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rules.HasVagueSalary(tc.desc, tc.min, nil, tc.strict); got != tc.want {
				t.Errorf("HasVagueSalary(%q) = %v, want %v", tc.desc, got, tc.want)
			}
		})
	}
}

// ── Rule 5: red flags ──────────────────────────────────────────────────────

func TestHasRedFlags(t *testing.T) {
	n, ok := rules.HasRedFlags("Apply now! Urgently hiring. APPLY NOW.")
	if !ok || n != 2 {
		t.Errorf("HasRedFlags = (%d, %v), want (2, true)", n, ok)
	}
	n, ok = rules.HasRedFlags("Join our team of engineers.")
	if ok || n != 1 {
		t.Errorf("single phrase: HasRedFlags = (%d, %v), want (1, false)", n, ok)
	}
	if _, ok := rules.HasRedFlags(""); ok {
		t.Error("empty description should not fire")
	}
}

// ── Rule 7: generic title ──────────────────────────────────────────────────

func TestIsGenericTitle(t *testing.T) {
	generic := []string{"Manager", "software engineer", "Consultant (m/f/d)", "Project Manager - Position", "DIRECTOR"}
	for _, title := range generic {
		if !rules.IsGenericTitle(title) {
			t.Errorf("IsGenericTitle(%q) should be true", title)
		}
	}
	specific := []string{"Senior Data Scientist", "Engineering Manager", "Software Engineer, Payments", "", "Role"}
	for _, title := range specific {
		if rules.IsGenericTitle(title) {
			t.Errorf("IsGenericTitle(%q) should be false", title)
		}
	}
}

// ── Rule 8: stagnant ───────────────────────────────────────────────────────

func TestIsStagnant(t *testing.T) {
	created := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	later := created.Add(48 * time.Hour)

	cases := []struct {
		name             string
		days             *int
		created, updated *time.Time
		want             bool
	}{
		{"young", intPtr(10), nil, nil, false},
		{"unknown age", nil, nil, nil, false},
		{"at threshold", intPtr(30), nil, nil, false},
		{"no timestamps", intPtr(31), nil, nil, true},
		{"never updated", intPtr(40), timePtr(created), timePtr(created), true},
		{"updated later", intPtr(40), timePtr(created), timePtr(later), false},
		{"only created", intPtr(40), timePtr(created), nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rules.IsStagnant(tc.days, tc.created, tc.updated, 30); got != tc.want {
				t.Errorf("IsStagnant = %v, want %v", got, tc.want)
			}
		})
	}
}

// ── Rule 9: vague location ─────────────────────────────────────────────────

func TestIsVagueLocation(t *testing.T) {
	vague := []string{"", "  ", "NY", "Remote", "remote remote", "Multiple Locations", "Anywhere or Remote", "WORLDWIDE"}
	for _, loc := range vague {
		if !rules.IsVagueLocation(loc) {
			t.Errorf("IsVagueLocation(%q) should be true", loc)
		}
	}
	concrete := []string{"Helsinki, Finland", "Remote - Helsinki", "Oulu", "NYC"}
	for _, loc := range concrete {
		if rules.IsVagueLocation(loc) {
			t.Errorf("IsVagueLocation(%q) should be false", loc)
		}
	}
}

// ── Rule 10: posting pattern ───────────────────────────────────────────────

func TestIsSuspiciousPattern(t *testing.T) {
	if rules.IsSuspiciousPattern(10, false, 10) {
		t.Error("exactly 10 posts/week should not fire")
	}
	if !rules.IsSuspiciousPattern(10.5, false, 10) {
		t.Error("10.5 posts/week should fire")
	}
	if !rules.IsSuspiciousPattern(0, true, 10) {
		t.Error("a repost should fire")
	}
}

func TestSuspiciousPatternReason(t *testing.T) {
	r := rules.New(rules.DefaultParams())[9]
	c := r.Evaluate(model.JobPosting{PostsPerWeek: 14})
	if c.Reason != "Suspicious posting pattern (14.0 posts/week)" {
		t.Errorf("reason = %q", c.Reason)
	}
	c = r.Evaluate(model.JobPosting{IsRepost: true})
	if c.Reason != "Suspicious posting pattern (repost)" {
		t.Errorf("reason = %q", c.Reason)
	}
}

// ── Whole-table scenarios ──────────────────────────────────────────────────

func firedIDs(cs []rules.Contribution) []int {
	var ids []int
	for _, c := range cs {
		if c.Fired {
			ids = append(ids, c.RuleID)
		}
	}
	return ids
}

func TestEvaluateAll_GhostScenario(t *testing.T) {
	p := model.JobPosting{
		Title:                "Manager",
		Company:              "Acme Staffing Solutions",
		Location:             "Remote",
		Description:          words(14) + " python",
		DaysSincePosted:      intPtr(50),
		DescriptionWordCount: 15,
		KeywordCount:         1,
		PostsPerWeek:         1,
	}
	got := firedIDs(rules.EvaluateAll(rules.New(rules.DefaultParams()), p))
	want := []int{1, 2, 3, 6, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("fired %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fired %v, want %v", got, want)
		}
	}
}

func TestEvaluateAll_CleanScenario(t *testing.T) {
	created := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	p := model.JobPosting{
		Title:                "Senior Data Scientist",
		Company:              "Tech Corp",
		Location:             "Helsinki, Finland",
		Description:          words(140) + " Salary €60,000 - €75,000 per year.",
		DaysSincePosted:      intPtr(5),
		CreatedAt:            timePtr(created),
		UpdatedAt:            timePtr(created.Add(24 * time.Hour)),
		DescriptionWordCount: 150,
		KeywordCount:         8,
		PostsPerWeek:         0.3,
	}
	if got := firedIDs(rules.EvaluateAll(rules.New(rules.DefaultParams()), p)); len(got) != 0 {
		t.Errorf("fired %v, want none", got)
	}
}

func TestParamsChangeThresholds(t *testing.T) {
	params := rules.DefaultParams()
	params.MaxDaysOld = 10
	r := rules.New(params)[0]
	if !r.Evaluate(model.JobPosting{DaysSincePosted: intPtr(11)}).Fired {
		t.Error("custom MaxDaysOld not applied")
	}
}
