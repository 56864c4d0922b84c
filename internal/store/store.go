// Package store persists scored postings, gate rejections and run summaries,
// and serves the history the company-activity index is built from.
//
// Two implementations share one schema: PostgresStore (pgx) for deployments
// next to the other JobMate services and SQLiteStore for single-node runs.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"jobmate/ghostjob-service/internal/model"
	"jobmate/ghostjob-service/internal/score"
)

// ErrNotFound is returned when a posting or run does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence surface the pipeline and the API need.
type Store interface {
	Migrate(ctx context.Context) error
	UpsertPostings(ctx context.Context, postings []model.JobPosting) error
	SaveRejections(ctx context.Context, runID string, rejections []model.Rejection) error
	SaveRun(ctx context.Context, summary model.BatchSummary) error
	GetRun(ctx context.Context, runID string) (*model.BatchSummary, error)
	LoadHistory(ctx context.Context) ([]model.HistoryEntry, error)
	GetPosting(ctx context.Context, jobID string) (*model.JobPosting, error)
	SuspiciousCompanies(ctx context.Context, minPostings, limit int) ([]model.CompanyStats, error)
	Close() error
}

// postingColumns is the job_postings column order used by every upsert
// and select.
var postingColumns = []string{
	"job_id", "source", "source_company", "title", "company", "location",
	"location_type", "description", "job_url",
	"posted_date", "created_at", "updated_at", "extracted_at",
	"days_since_posted", "description_word_count", "keyword_count",
	"detected_keywords", "posts_per_week", "posting_velocity", "is_repost",
	"ghost_score", "confidence", "is_ghost_job", "ghost_job_reason", "active",
}

// upsertPostingSQL builds the job_postings upsert. A re-scored posting
// overwrites every field except posted_date, which keeps its first known
// value, and an older extraction never overwrites a newer one.
func upsertPostingSQL(placeholder func(i int, column string) string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO job_postings (")
	b.WriteString(strings.Join(postingColumns, ", "))
	b.WriteString(") VALUES (")
	for i, c := range postingColumns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholder(i+1, c))
	}
	b.WriteString(") ON CONFLICT (job_id) DO UPDATE SET ")
	first := true
	for _, c := range postingColumns {
		if c == "job_id" {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		if c == "posted_date" {
			b.WriteString("posted_date = COALESCE(job_postings.posted_date, excluded.posted_date)")
			continue
		}
		b.WriteString(c + " = excluded." + c)
	}
	b.WriteString(" WHERE excluded.extracted_at >= job_postings.extracted_at")
	return b.String()
}

// companyStats fills the ratio once the query has returned counts.
func companyStats(company string, total, flagged int, avg float64) model.CompanyStats {
	s := model.CompanyStats{Company: company, Total: total, Flagged: flagged, AvgScore: avg}
	if total > 0 {
		s.FlaggedRatio = float64(flagged) / float64(total)
	}
	return s
}

func splitReasons(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, score.ReasonSeparator)
}

func keywordsOrEmpty(kw []string) []string {
	if kw == nil {
		return []string{}
	}
	return kw
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
