// Package model defines shared data structures for the ghost-job service.
package model

import (
	"fmt"
	"strings"
	"time"
)

// RawRecord is one source-shaped record as handed over by an extractor.
// Keys follow the flat canonical names (job_id, title, job_url, …); values
// are whatever the source produced (strings, numbers, bools, time.Time).
type RawRecord map[string]any

// Source identifies where a posting was extracted from.
type Source string

const (
	SourceLinkedIn   Source = "linkedin"
	SourceGreenhouse Source = "greenhouse"
	SourceLever      Source = "lever"
	SourceAdzuna     Source = "adzuna"
	SourceOther      Source = "other"
)

// ParseSource maps a raw source label to a Source. Unknown labels become
// SourceOther rather than an error: provenance never blocks scoring.
func ParseSource(s string) Source {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceLinkedIn, SourceGreenhouse, SourceLever, SourceAdzuna:
		return src
	}
	return SourceOther
}

// LocationType is the coarse work-arrangement category of a posting.
type LocationType string

const (
	LocationRemote  LocationType = "remote"
	LocationHybrid  LocationType = "hybrid"
	LocationOnsite  LocationType = "onsite"
	LocationUnknown LocationType = "unknown"
)

// Confidence is the named band a ghost score falls into.
type Confidence string

const (
	ConfidenceVeryLow  Confidence = "very_low"
	ConfidenceLow      Confidence = "low"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceHigh     Confidence = "high"
	ConfidenceVeryHigh Confidence = "very_high"
)

// ParseConfidence converts a stored string back to a Confidence.
func ParseConfidence(s string) (Confidence, error) {
	c := Confidence(s)
	switch c {
	case ConfidenceVeryLow, ConfidenceLow, ConfidenceMedium, ConfidenceHigh, ConfidenceVeryHigh:
		return c, nil
	}
	return "", fmt.Errorf("unknown confidence %q", s)
}

// JobPosting is the canonical, scored entity. It mirrors the job_postings
// table row; SalaryMin/SalaryMax and Reasons are carried in memory only.
type JobPosting struct {
	JobID         string       `json:"job_id"`
	Source        Source       `json:"source"`
	SourceCompany string       `json:"source_company"`
	Title         string       `json:"title"`
	Company       string       `json:"company"`
	Location      string       `json:"location"`
	LocationType  LocationType `json:"location_type"`
	Description   string       `json:"description"`
	JobURL        string       `json:"job_url"`

	PostedDate  *time.Time `json:"posted_date,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	ExtractedAt time.Time  `json:"extracted_at"`

	SalaryMin *float64 `json:"salary_min,omitempty"`
	SalaryMax *float64 `json:"salary_max,omitempty"`

	// Derived by the normalizer; never taken from the source.
	DaysSincePosted      *int     `json:"days_since_posted"`
	DescriptionWordCount int      `json:"description_word_count"`
	KeywordCount         int      `json:"keyword_count"`
	DetectedKeywords     []string `json:"detected_keywords"`
	PostsPerWeek         float64  `json:"posts_per_week"`
	PostingVelocity      float64  `json:"posting_velocity"`
	IsRepost             bool     `json:"is_repost"`

	// Scoring outputs.
	GhostScore     int        `json:"ghost_score"`
	Confidence     Confidence `json:"confidence"`
	IsGhostJob     bool       `json:"is_ghost_job"`
	Reasons        []string   `json:"reasons,omitempty"`
	GhostJobReason string     `json:"ghost_job_reason"`
	Active         bool       `json:"active"`
}

// HistoryEntry is the slice of a previously persisted posting needed to
// compute company activity and reposts.
type HistoryEntry struct {
	JobID      string
	Company    string
	Title      string
	Location   string
	PostedDate time.Time
}

// Rejection records why a raw record never reached scoring.
type Rejection struct {
	Index   int      `json:"index"`
	JobID   string   `json:"job_id,omitempty"`
	Reasons []string `json:"reasons"`
}

// Status of one input record after a scoring pass.
type Status string

const (
	StatusScored   Status = "scored"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Outcome accounts for exactly one input record.
type Outcome struct {
	Index   int         `json:"index"`
	Status  Status      `json:"status"`
	Posting *JobPosting `json:"posting,omitempty"`
	Reasons []string    `json:"reasons,omitempty"`
	// Anomalies are normalization notes; the record was still scored.
	Anomalies []string `json:"anomalies,omitempty"`
}

// BatchSummary is the per-pass report handed to the load stage and logs.
type BatchSummary struct {
	RunID            string         `json:"run_id"`
	Total            int            `json:"total"`
	Scored           int            `json:"scored"`
	Rejected         int            `json:"rejected"`
	Failed           int            `json:"failed"`
	GhostFlagged     int            `json:"ghost_flagged"`
	RejectionReasons map[string]int `json:"rejection_reasons"`
	ReferenceTime    time.Time      `json:"reference_time"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       time.Time      `json:"finished_at"`
}

// CompanyStats is one row of the suspicious-company report.
type CompanyStats struct {
	Company      string  `json:"company"`
	Total        int     `json:"total"`
	Flagged      int     `json:"flagged"`
	FlaggedRatio float64 `json:"flagged_ratio"`
	AvgScore     float64 `json:"avg_score"`
}
