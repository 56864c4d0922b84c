package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/ghostjob-service/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS job_postings (
	job_id                 TEXT PRIMARY KEY,
	source                 TEXT NOT NULL DEFAULT 'other',
	source_company         TEXT NOT NULL DEFAULT '',
	title                  TEXT NOT NULL,
	company                TEXT NOT NULL DEFAULT '',
	location               TEXT NOT NULL DEFAULT '',
	location_type          TEXT NOT NULL DEFAULT 'unknown',
	description            TEXT NOT NULL DEFAULT '',
	job_url                TEXT NOT NULL,
	posted_date            DATE,
	created_at             TIMESTAMPTZ,
	updated_at             TIMESTAMPTZ,
	extracted_at           TIMESTAMPTZ NOT NULL,
	days_since_posted      INTEGER CHECK (days_since_posted >= 0),
	description_word_count INTEGER NOT NULL DEFAULT 0,
	keyword_count          INTEGER NOT NULL DEFAULT 0,
	detected_keywords      JSONB NOT NULL DEFAULT '[]'::jsonb,
	posts_per_week         DOUBLE PRECISION NOT NULL DEFAULT 0,
	posting_velocity       DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_repost              BOOLEAN NOT NULL DEFAULT FALSE,
	ghost_score            INTEGER NOT NULL CHECK (ghost_score BETWEEN 0 AND 165),
	confidence             TEXT NOT NULL CHECK (confidence IN ('very_low','low','medium','high','very_high')),
	is_ghost_job           BOOLEAN NOT NULL,
	ghost_job_reason       TEXT NOT NULL DEFAULT '',
	active                 BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS job_postings_company_posted_idx ON job_postings (company, posted_date);

CREATE TABLE IF NOT EXISTS scoring_runs (
	run_id            TEXT PRIMARY KEY,
	total             INTEGER NOT NULL,
	scored            INTEGER NOT NULL,
	rejected          INTEGER NOT NULL,
	failed            INTEGER NOT NULL,
	ghost_flagged     INTEGER NOT NULL,
	rejection_reasons JSONB NOT NULL DEFAULT '{}'::jsonb,
	reference_time    TIMESTAMPTZ NOT NULL,
	started_at        TIMESTAMPTZ NOT NULL,
	finished_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS quality_rejections (
	id           BIGSERIAL PRIMARY KEY,
	run_id       TEXT NOT NULL,
	record_index INTEGER NOT NULL,
	job_id       TEXT NOT NULL DEFAULT '',
	reasons      JSONB NOT NULL,
	rejected_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS quality_rejections_run_idx ON quality_rejections (run_id);
`

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	pool      *pgxpool.Pool
	upsertSQL string
}

// NewPostgresStore wraps an open pool. Close closes the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		upsertSQL: upsertPostingSQL(func(i int, column string) string {
			if column == "detected_keywords" {
				return "$" + strconv.Itoa(i) + "::jsonb"
			}
			return "$" + strconv.Itoa(i)
		}),
	}
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// UpsertPostings writes all postings in one transaction.
func (s *PostgresStore) UpsertPostings(ctx context.Context, postings []model.JobPosting) error {
	if len(postings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range postings {
		kw, err := json.Marshal(keywordsOrEmpty(p.DetectedKeywords))
		if err != nil {
			return fmt.Errorf("marshal keywords for %s: %w", p.JobID, err)
		}
		batch.Queue(s.upsertSQL,
			p.JobID, string(p.Source), p.SourceCompany, p.Title, p.Company, p.Location,
			string(p.LocationType), p.Description, p.JobURL,
			p.PostedDate, p.CreatedAt, p.UpdatedAt, p.ExtractedAt,
			p.DaysSincePosted, p.DescriptionWordCount, p.KeywordCount,
			string(kw), p.PostsPerWeek, p.PostingVelocity, p.IsRepost,
			p.GhostScore, string(p.Confidence), p.IsGhostJob, p.GhostJobReason, p.Active,
		)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for _, p := range postings {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("upsert %s: %w", p.JobID, err)
			}
		}
		return br.Close()
	})
}

// SaveRejections stores the gate rejections of one run.
func (s *PostgresStore) SaveRejections(ctx context.Context, runID string, rejections []model.Rejection) error {
	if len(rejections) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rejections {
		reasons, err := json.Marshal(r.Reasons)
		if err != nil {
			return fmt.Errorf("marshal reasons: %w", err)
		}
		batch.Queue(
			`INSERT INTO quality_rejections (run_id, record_index, job_id, reasons)
			 VALUES ($1, $2, $3, $4::jsonb)`,
			runID, r.Index, r.JobID, string(reasons),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range rejections {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert rejection: %w", err)
		}
	}
	return nil
}

// SaveRun stores a batch summary.
func (s *PostgresStore) SaveRun(ctx context.Context, sum model.BatchSummary) error {
	reasons, err := json.Marshal(sum.RejectionReasons)
	if err != nil {
		return fmt.Errorf("marshal rejection reasons: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO scoring_runs
		   (run_id, total, scored, rejected, failed, ghost_flagged, rejection_reasons,
		    reference_time, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10)
		 ON CONFLICT (run_id) DO NOTHING`,
		sum.RunID, sum.Total, sum.Scored, sum.Rejected, sum.Failed, sum.GhostFlagged,
		string(reasons), sum.ReferenceTime, sum.StartedAt, sum.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun returns a stored batch summary or ErrNotFound.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.BatchSummary, error) {
	var sum model.BatchSummary
	err := s.pool.QueryRow(ctx,
		`SELECT run_id, total, scored, rejected, failed, ghost_flagged, rejection_reasons,
		        reference_time, started_at, finished_at
		 FROM scoring_runs WHERE run_id = $1`, runID,
	).Scan(
		&sum.RunID, &sum.Total, &sum.Scored, &sum.Rejected, &sum.Failed, &sum.GhostFlagged,
		&sum.RejectionReasons, &sum.ReferenceTime, &sum.StartedAt, &sum.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	sum.ReferenceTime = sum.ReferenceTime.UTC()
	sum.StartedAt = sum.StartedAt.UTC()
	sum.FinishedAt = sum.FinishedAt.UTC()
	return &sum, nil
}

// LoadHistory returns every stored posting that has a posted_date.
func (s *PostgresStore) LoadHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT job_id, company, title, location, posted_date
		 FROM job_postings
		 WHERE posted_date IS NOT NULL
		 ORDER BY posted_date, job_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := make([]model.HistoryEntry, 0)
	for rows.Next() {
		var h model.HistoryEntry
		if err := rows.Scan(&h.JobID, &h.Company, &h.Title, &h.Location, &h.PostedDate); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// GetPosting returns one stored posting or ErrNotFound.
func (s *PostgresStore) GetPosting(ctx context.Context, jobID string) (*model.JobPosting, error) {
	var (
		p                              model.JobPosting
		source, locationType, confText string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT `+strings.Join(postingColumns, ", ")+` FROM job_postings WHERE job_id = $1`, jobID,
	).Scan(
		&p.JobID, &source, &p.SourceCompany, &p.Title, &p.Company, &p.Location,
		&locationType, &p.Description, &p.JobURL,
		&p.PostedDate, &p.CreatedAt, &p.UpdatedAt, &p.ExtractedAt,
		&p.DaysSincePosted, &p.DescriptionWordCount, &p.KeywordCount,
		&p.DetectedKeywords, &p.PostsPerWeek, &p.PostingVelocity, &p.IsRepost,
		&p.GhostScore, &confText, &p.IsGhostJob, &p.GhostJobReason, &p.Active,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get posting: %w", err)
	}

	p.ExtractedAt = p.ExtractedAt.UTC()
	p.CreatedAt = utcPtr(p.CreatedAt)
	p.UpdatedAt = utcPtr(p.UpdatedAt)
	p.Source = model.Source(source)
	p.LocationType = model.LocationType(locationType)
	if p.Confidence, err = model.ParseConfidence(confText); err != nil {
		return nil, fmt.Errorf("get posting %s: %w", jobID, err)
	}
	p.DetectedKeywords = keywordsOrEmpty(p.DetectedKeywords)
	p.Reasons = splitReasons(p.GhostJobReason)
	return &p, nil
}

// SuspiciousCompanies ranks companies with at least minPostings stored
// postings by the share of them flagged as ghost jobs.
func (s *PostgresStore) SuspiciousCompanies(ctx context.Context, minPostings, limit int) ([]model.CompanyStats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company, COUNT(*) AS total,
		        COUNT(*) FILTER (WHERE is_ghost_job) AS flagged,
		        AVG(ghost_score)::float8 AS avg_score
		 FROM job_postings
		 WHERE company <> ''
		 GROUP BY company
		 HAVING COUNT(*) >= $1
		 ORDER BY COUNT(*) FILTER (WHERE is_ghost_job)::float8 / COUNT(*) DESC, avg_score DESC, company
		 LIMIT $2`,
		minPostings, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query suspicious companies: %w", err)
	}
	defer rows.Close()

	out := make([]model.CompanyStats, 0)
	for rows.Next() {
		var (
			company        string
			total, flagged int
			avg            float64
		)
		if err := rows.Scan(&company, &total, &flagged, &avg); err != nil {
			return nil, fmt.Errorf("scan company stats: %w", err)
		}
		out = append(out, companyStats(company, total, flagged, avg))
	}
	return out, rows.Err()
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
