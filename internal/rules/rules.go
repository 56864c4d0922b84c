// Package rules holds the ghost-job detection rules.
//
// Each rule is a plain value: an id, a fixed weight and a predicate over the
// few JobPosting fields it needs. Rules never see each other's result or the
// running score, so they can be evaluated in any order, and a fired rule
// always contributes exactly its weight.
//
//	#   rule                     points
//	1   job age                  30
//	2   description quality      20
//	3   suspicious company       25
//	4   vague salary             15
//	5   red-flag keywords        15
//	6   few technical keywords   10
//	7   generic title            10
//	8   stagnant posting         20
//	9   vague location            5
//	10  suspicious posting       15
//	                            ---
//	                            165
package rules

import (
	"fmt"
	"time"

	"jobmate/ghostjob-service/internal/model"
)

// Rule weights. They are part of the scoring contract and not configurable.
const (
	WeightJobAge            = 30
	WeightDescription       = 20
	WeightSuspiciousCompany = 25
	WeightVagueSalary       = 15
	WeightRedFlags          = 15
	WeightFewKeywords       = 10
	WeightGenericTitle      = 10
	WeightStagnant          = 20
	WeightVagueLocation     = 5
	WeightSuspiciousPattern = 15
)

// MaxScore is the score of a posting that fires every rule.
const MaxScore = WeightJobAge + WeightDescription + WeightSuspiciousCompany +
	WeightVagueSalary + WeightRedFlags + WeightFewKeywords + WeightGenericTitle +
	WeightStagnant + WeightVagueLocation + WeightSuspiciousPattern

// Params are the tunable thresholds the rules compare against.
type Params struct {
	MaxDaysOld                int     `yaml:"max_days_old" validate:"min=1"`
	StagnantDays              int     `yaml:"stagnant_days" validate:"min=1"`
	MinDescriptionWords       int     `yaml:"min_description_words" validate:"min=0"`
	MinKeywordCount           int     `yaml:"min_keyword_count" validate:"min=0"`
	HighFrequencyPostsPerWeek float64 `yaml:"high_frequency_posts_per_week" validate:"gt=0"`
	// StrictSalary also fires rule 4 when the description never mentions pay.
	StrictSalary bool `yaml:"strict_salary"`
}

// DefaultParams returns the documented thresholds.
func DefaultParams() Params {
	return Params{
		MaxDaysOld:                45,
		StagnantDays:              30,
		MinDescriptionWords:       30,
		MinKeywordCount:           2,
		HighFrequencyPostsPerWeek: 10,
	}
}

// Contribution is one rule's verdict on one posting.
type Contribution struct {
	RuleID int    `json:"rule_id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Fired  bool   `json:"fired"`
	Reason string `json:"reason,omitempty"`
}

// Rule is a weighted predicate.
type Rule struct {
	ID     int
	Name   string
	Weight int
	check  func(p *model.JobPosting) (bool, string)
}

// Evaluate applies the rule to p. A rule that does not fire contributes 0
// points and no reason.
func (r Rule) Evaluate(p model.JobPosting) Contribution {
	c := Contribution{RuleID: r.ID, Name: r.Name}
	if fired, reason := r.check(&p); fired {
		c.Fired = true
		c.Points = r.Weight
		c.Reason = reason
	}
	return c
}

// EvaluateAll runs every rule against p and returns the contributions in
// rule order.
func EvaluateAll(rs []Rule, p model.JobPosting) []Contribution {
	out := make([]Contribution, len(rs))
	for i, r := range rs {
		out[i] = r.Evaluate(p)
	}
	return out
}

// New builds the ten rules in definition order.
func New(params Params) []Rule {
	return []Rule{
		{ID: 1, Name: "job_age", Weight: WeightJobAge, check: func(p *model.JobPosting) (bool, string) {
			if !IsOld(p.DaysSincePosted, params.MaxDaysOld) {
				return false, ""
			}
			return true, fmt.Sprintf("Posted %d days ago", *p.DaysSincePosted)
		}},
		{ID: 2, Name: "description_quality", Weight: WeightDescription, check: func(p *model.JobPosting) (bool, string) {
			if !IsShortDescription(p.DescriptionWordCount, params.MinDescriptionWords) {
				return false, ""
			}
			return true, fmt.Sprintf("Very short description (%d words)", p.DescriptionWordCount)
		}},
		{ID: 3, Name: "suspicious_company", Weight: WeightSuspiciousCompany, check: func(p *model.JobPosting) (bool, string) {
			name, ok := IsSuspiciousCompany(p.Company, p.SourceCompany)
			if !ok {
				return false, ""
			}
			return true, "Suspicious company pattern: " + name
		}},
		{ID: 4, Name: "vague_salary", Weight: WeightVagueSalary, check: func(p *model.JobPosting) (bool, string) {
			if !HasVagueSalary(p.Description, p.SalaryMin, p.SalaryMax, params.StrictSalary) {
				return false, ""
			}
			return true, "Vague salary information"
		}},
		{ID: 5, Name: "red_flag_keywords", Weight: WeightRedFlags, check: func(p *model.JobPosting) (bool, string) {
			n, ok := HasRedFlags(p.Description)
			if !ok {
				return false, ""
			}
			return true, fmt.Sprintf("Contains red flag keywords (%d found)", n)
		}},
		{ID: 6, Name: "few_technical_keywords", Weight: WeightFewKeywords, check: func(p *model.JobPosting) (bool, string) {
			if !HasFewKeywords(p.KeywordCount, params.MinKeywordCount) {
				return false, ""
			}
			return true, fmt.Sprintf("Few technical keywords (%d found)", p.KeywordCount)
		}},
		{ID: 7, Name: "generic_title", Weight: WeightGenericTitle, check: func(p *model.JobPosting) (bool, string) {
			if !IsGenericTitle(p.Title) {
				return false, ""
			}
			return true, "Generic job title"
		}},
		{ID: 8, Name: "stagnant_posting", Weight: WeightStagnant, check: func(p *model.JobPosting) (bool, string) {
			if !IsStagnant(p.DaysSincePosted, p.CreatedAt, p.UpdatedAt, params.StagnantDays) {
				return false, ""
			}
			return true, fmt.Sprintf("No updates since creation (%d days old)", *p.DaysSincePosted)
		}},
		{ID: 9, Name: "vague_location", Weight: WeightVagueLocation, check: func(p *model.JobPosting) (bool, string) {
			if !IsVagueLocation(p.Location) {
				return false, ""
			}
			return true, "Vague location information"
		}},
		{ID: 10, Name: "suspicious_posting_pattern", Weight: WeightSuspiciousPattern, check: func(p *model.JobPosting) (bool, string) {
			if !IsSuspiciousPattern(p.PostsPerWeek, p.IsRepost, params.HighFrequencyPostsPerWeek) {
				return false, ""
			}
			if p.IsRepost {
				return true, "Suspicious posting pattern (repost)"
			}
			return true, fmt.Sprintf("Suspicious posting pattern (%.1f posts/week)", p.PostsPerWeek)
		}},
	}
}

// IsOld reports a known age strictly above maxDays. Unknown age never fires.
func IsOld(daysSincePosted *int, maxDays int) bool {
	return daysSincePosted != nil && *daysSincePosted > maxDays
}

// IsShortDescription reports fewer than minWords words.
func IsShortDescription(wordCount, minWords int) bool {
	return wordCount < minWords
}

// HasFewKeywords reports fewer than minKeywords technical keywords.
func HasFewKeywords(keywordCount, minKeywords int) bool {
	return keywordCount < minKeywords
}

// IsStagnant reports a posting older than minDays that shows no update
// activity: updated_at absent, created_at absent, or updated_at not after
// created_at.
func IsStagnant(daysSincePosted *int, createdAt, updatedAt *time.Time, minDays int) bool {
	if daysSincePosted == nil || *daysSincePosted <= minDays {
		return false
	}
	if createdAt == nil || updatedAt == nil {
		return true
	}
	return !updatedAt.After(*createdAt)
}

// IsSuspiciousPattern reports bulk posting above threshold or a repost.
func IsSuspiciousPattern(postsPerWeek float64, isRepost bool, threshold float64) bool {
	return isRepost || postsPerWeek > threshold
}
