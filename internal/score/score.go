// Package score turns rule contributions into the final ghost score,
// confidence band and flag.
package score

import (
	"fmt"
	"strings"

	"jobmate/ghostjob-service/internal/model"
	"jobmate/ghostjob-service/internal/rules"
)

// Threshold is the score at which a posting is classified as a ghost job.
// It coincides with the lower edge of the medium band.
const Threshold = 40

// ReasonSeparator joins fired-rule reasons for ghost_job_reason.
const ReasonSeparator = "; "

type band struct {
	min        int
	confidence model.Confidence
}

// Lower edges, highest first. Each band is [min, next band's min).
var bands = []band{
	{70, model.ConfidenceVeryHigh},
	{50, model.ConfidenceHigh},
	{40, model.ConfidenceMedium},
	{20, model.ConfidenceLow},
	{0, model.ConfidenceVeryLow},
}

// Result is the aggregate verdict for one posting.
type Result struct {
	Score      int
	Confidence model.Confidence
	IsGhost    bool
	Reasons    []string
}

// BandFor maps a score in [0, MaxScore] to its confidence band. Negative
// scores fall into very_low.
func BandFor(score int) model.Confidence {
	for _, b := range bands {
		if score >= b.min {
			return b.confidence
		}
	}
	return model.ConfidenceVeryLow
}

// IsGhost reports whether score reaches Threshold.
func IsGhost(score int) bool {
	return score >= Threshold
}

// Aggregate sums fired contributions, clamps to [0, rules.MaxScore] and
// collects reasons in the order given.
func Aggregate(contribs []rules.Contribution) Result {
	total := 0
	reasons := []string{}
	for _, c := range contribs {
		if !c.Fired {
			continue
		}
		total += c.Points
		if c.Reason != "" {
			reasons = append(reasons, c.Reason)
		}
	}
	total = clamp(total, 0, rules.MaxScore)

	return Result{
		Score:      total,
		Confidence: BandFor(total),
		IsGhost:    IsGhost(total),
		Reasons:    reasons,
	}
}

// Apply copies r onto the scoring fields of p.
func Apply(p *model.JobPosting, r Result) {
	p.GhostScore = r.Score
	p.Confidence = r.Confidence
	p.IsGhostJob = r.IsGhost
	p.Reasons = r.Reasons
	p.GhostJobReason = strings.Join(r.Reasons, ReasonSeparator)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Consistency checks reported by Check.
const (
	CheckScoreRange      = "score_range"
	CheckConfidenceBand  = "confidence_band"
	CheckFlagThreshold   = "flag_threshold"
	CheckKeywordCount    = "keyword_count"
	CheckNegativeAgeDays = "negative_days_since_posted"
)

// InvariantError reports a scored posting whose fields disagree with each
// other. It always indicates a defect in this service, never bad input.
type InvariantError struct {
	JobID string
	Check string
	Got   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s violated for job %q: %s", e.Check, e.JobID, e.Got)
}

// Check verifies that a scored posting is internally consistent.
func Check(p model.JobPosting) error {
	fail := func(check, format string, args ...any) error {
		return &InvariantError{JobID: p.JobID, Check: check, Got: fmt.Sprintf(format, args...)}
	}
	if p.GhostScore < 0 || p.GhostScore > rules.MaxScore {
		return fail(CheckScoreRange, "ghost_score=%d", p.GhostScore)
	}
	if want := BandFor(p.GhostScore); p.Confidence != want {
		return fail(CheckConfidenceBand, "confidence=%s for score %d, want %s", p.Confidence, p.GhostScore, want)
	}
	if p.IsGhostJob != IsGhost(p.GhostScore) {
		return fail(CheckFlagThreshold, "is_ghost_job=%t for score %d", p.IsGhostJob, p.GhostScore)
	}
	if p.KeywordCount != len(p.DetectedKeywords) {
		return fail(CheckKeywordCount, "keyword_count=%d, %d detected", p.KeywordCount, len(p.DetectedKeywords))
	}
	if p.DaysSincePosted != nil && *p.DaysSincePosted < 0 {
		return fail(CheckNegativeAgeDays, "days_since_posted=%d", *p.DaysSincePosted)
	}
	return nil
}

// Scorer evaluates a fixed rule set.
type Scorer struct {
	rules []rules.Rule
}

// NewScorer returns a Scorer over rs. The slice must not be modified
// afterwards; a Scorer is safe for concurrent use.
func NewScorer(rs []rules.Rule) *Scorer {
	return &Scorer{rules: rs}
}

// Evaluate returns every rule's contribution for p without modifying it.
func (s *Scorer) Evaluate(p model.JobPosting) []rules.Contribution {
	return rules.EvaluateAll(s.rules, p)
}

// Score evaluates p, writes the result onto it and checks consistency.
func (s *Scorer) Score(p *model.JobPosting) error {
	Apply(p, Aggregate(s.Evaluate(*p)))
	return Check(*p)
}
