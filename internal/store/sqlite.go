package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobmate/ghostjob-service/internal/model"
)

// SQLite has no date type. Timestamps are stored as fixed-width UTC text so
// that string comparison orders them correctly.
const (
	sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
	sqliteDateLayout = "2006-01-02"
)

const sqliteSchema = `
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
	posted_date            TEXT,
	created_at             TEXT,
	updated_at             TEXT,
	extracted_at           TEXT NOT NULL,
	days_since_posted      INTEGER CHECK (days_since_posted >= 0),
	description_word_count INTEGER NOT NULL DEFAULT 0,
	keyword_count          INTEGER NOT NULL DEFAULT 0,
	detected_keywords      TEXT NOT NULL DEFAULT '[]',
	posts_per_week         REAL NOT NULL DEFAULT 0,
	posting_velocity       REAL NOT NULL DEFAULT 0,
	is_repost              INTEGER NOT NULL DEFAULT 0,
	ghost_score            INTEGER NOT NULL CHECK (ghost_score BETWEEN 0 AND 165),
	confidence             TEXT NOT NULL CHECK (confidence IN ('very_low','low','medium','high','very_high')),
	is_ghost_job           INTEGER NOT NULL,
	ghost_job_reason       TEXT NOT NULL DEFAULT '',
	active                 INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS job_postings_company_posted_idx ON job_postings (company, posted_date);

CREATE TABLE IF NOT EXISTS scoring_runs (
	run_id            TEXT PRIMARY KEY,
	total             INTEGER NOT NULL,
	scored            INTEGER NOT NULL,
	rejected          INTEGER NOT NULL,
	failed            INTEGER NOT NULL,
	ghost_flagged     INTEGER NOT NULL,
	rejection_reasons TEXT NOT NULL DEFAULT '{}',
	reference_time    TEXT NOT NULL,
	started_at        TEXT NOT NULL,
	finished_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS quality_rejections (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	record_index INTEGER NOT NULL,
	job_id       TEXT NOT NULL DEFAULT '',
	reasons      TEXT NOT NULL,
	rejected_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
CREATE INDEX IF NOT EXISTS quality_rejections_run_idx ON quality_rejections (run_id);
`

// SQLiteStore is the database/sql Store over modernc.org/sqlite.
type SQLiteStore struct {
	conn      *sql.DB
	upsertSQL string
}

// NewSQLiteStore wraps an open connection. Close closes it.
func NewSQLiteStore(conn *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		conn:      conn,
		upsertSQL: upsertPostingSQL(func(int, string) string { return "?" }),
	}
}

// Migrate creates the tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// UpsertPostings writes all postings in one transaction.
func (s *SQLiteStore) UpsertPostings(ctx context.Context, postings []model.JobPosting) error {
	if len(postings) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, s.upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range postings {
		kw, err := json.Marshal(keywordsOrEmpty(p.DetectedKeywords))
		if err != nil {
			return fmt.Errorf("marshal keywords for %s: %w", p.JobID, err)
		}
		var posted any
		if p.PostedDate != nil {
			posted = p.PostedDate.UTC().Format(sqliteDateLayout)
		}
		var days any
		if p.DaysSincePosted != nil {
			days = *p.DaysSincePosted
		}
		_, err = stmt.ExecContext(ctx,
			p.JobID, string(p.Source), p.SourceCompany, p.Title, p.Company, p.Location,
			string(p.LocationType), p.Description, p.JobURL,
			posted, formatNullTime(p.CreatedAt), formatNullTime(p.UpdatedAt), formatTime(p.ExtractedAt),
			days, p.DescriptionWordCount, p.KeywordCount,
			string(kw), p.PostsPerWeek, p.PostingVelocity, p.IsRepost,
			p.GhostScore, string(p.Confidence), p.IsGhostJob, p.GhostJobReason, p.Active,
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", p.JobID, err)
		}
	}

	return tx.Commit()
}

// SaveRejections stores the gate rejections of one run.
func (s *SQLiteStore) SaveRejections(ctx context.Context, runID string, rejections []model.Rejection) error {
	if len(rejections) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range rejections {
		reasons, err := json.Marshal(r.Reasons)
		if err != nil {
			return fmt.Errorf("marshal reasons: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quality_rejections (run_id, record_index, job_id, reasons) VALUES (?, ?, ?, ?)`,
			runID, r.Index, r.JobID, string(reasons),
		); err != nil {
			return fmt.Errorf("insert rejection: %w", err)
		}
	}
	return tx.Commit()
}

// SaveRun stores a batch summary.
func (s *SQLiteStore) SaveRun(ctx context.Context, sum model.BatchSummary) error {
	reasons, err := json.Marshal(sum.RejectionReasons)
	if err != nil {
		return fmt.Errorf("marshal rejection reasons: %w", err)
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO scoring_runs
		   (run_id, total, scored, rejected, failed, ghost_flagged, rejection_reasons,
		    reference_time, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id) DO NOTHING`,
		sum.RunID, sum.Total, sum.Scored, sum.Rejected, sum.Failed, sum.GhostFlagged,
		string(reasons), formatTime(sum.ReferenceTime), formatTime(sum.StartedAt), formatTime(sum.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun returns a stored batch summary or ErrNotFound.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.BatchSummary, error) {
	var (
		sum                         model.BatchSummary
		reasons, ref, start, finish string
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT run_id, total, scored, rejected, failed, ghost_flagged, rejection_reasons,
		        reference_time, started_at, finished_at
		 FROM scoring_runs WHERE run_id = ?`, runID,
	).Scan(
		&sum.RunID, &sum.Total, &sum.Scored, &sum.Rejected, &sum.Failed, &sum.GhostFlagged,
		&reasons, &ref, &start, &finish,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	if err := json.Unmarshal([]byte(reasons), &sum.RejectionReasons); err != nil {
		return nil, fmt.Errorf("decode rejection reasons: %w", err)
	}
	for _, f := range []struct {
		src string
		dst *time.Time
	}{{ref, &sum.ReferenceTime}, {start, &sum.StartedAt}, {finish, &sum.FinishedAt}} {
		if *f.dst, err = time.Parse(sqliteTimeLayout, f.src); err != nil {
			return nil, fmt.Errorf("decode run time: %w", err)
		}
	}
	return &sum, nil
}

// LoadHistory returns every stored posting that has a posted_date.
func (s *SQLiteStore) LoadHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	rows, err := s.conn.QueryContext(ctx,
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
		var (
			h      model.HistoryEntry
			posted string
		)
		if err := rows.Scan(&h.JobID, &h.Company, &h.Title, &h.Location, &posted); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if h.PostedDate, err = time.Parse(sqliteDateLayout, posted); err != nil {
			return nil, fmt.Errorf("decode posted_date of %s: %w", h.JobID, err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// GetPosting returns one stored posting or ErrNotFound.
func (s *SQLiteStore) GetPosting(ctx context.Context, jobID string) (*model.JobPosting, error) {
	var (
		p                                   model.JobPosting
		source, locationType, conf, kw, ext string
		posted, created, updated            sql.NullString
		days                                sql.NullInt64
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT `+strings.Join(postingColumns, ", ")+` FROM job_postings WHERE job_id = ?`, jobID,
	).Scan(
		&p.JobID, &source, &p.SourceCompany, &p.Title, &p.Company, &p.Location,
		&locationType, &p.Description, &p.JobURL,
		&posted, &created, &updated, &ext,
		&days, &p.DescriptionWordCount, &p.KeywordCount,
		&kw, &p.PostsPerWeek, &p.PostingVelocity, &p.IsRepost,
		&p.GhostScore, &conf, &p.IsGhostJob, &p.GhostJobReason, &p.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get posting: %w", err)
	}

	p.Source = model.Source(source)
	p.LocationType = model.LocationType(locationType)
	if p.Confidence, err = model.ParseConfidence(conf); err != nil {
		return nil, fmt.Errorf("get posting %s: %w", jobID, err)
	}
	if err := json.Unmarshal([]byte(kw), &p.DetectedKeywords); err != nil {
		return nil, fmt.Errorf("decode keywords of %s: %w", jobID, err)
	}
	p.DetectedKeywords = keywordsOrEmpty(p.DetectedKeywords)
	if days.Valid {
		d := int(days.Int64)
		p.DaysSincePosted = &d
	}
	if p.ExtractedAt, err = time.Parse(sqliteTimeLayout, ext); err != nil {
		return nil, fmt.Errorf("decode extracted_at of %s: %w", jobID, err)
	}
	if p.PostedDate, err = parseNull(sqliteDateLayout, posted); err != nil {
		return nil, fmt.Errorf("decode posted_date of %s: %w", jobID, err)
	}
	if p.CreatedAt, err = parseNull(sqliteTimeLayout, created); err != nil {
		return nil, fmt.Errorf("decode created_at of %s: %w", jobID, err)
	}
	if p.UpdatedAt, err = parseNull(sqliteTimeLayout, updated); err != nil {
		return nil, fmt.Errorf("decode updated_at of %s: %w", jobID, err)
	}
	p.Reasons = splitReasons(p.GhostJobReason)
	return &p, nil
}

// SuspiciousCompanies ranks companies with at least minPostings stored
// postings by the share of them flagged as ghost jobs.
func (s *SQLiteStore) SuspiciousCompanies(ctx context.Context, minPostings, limit int) ([]model.CompanyStats, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT company, COUNT(*) AS total,
		        SUM(CASE WHEN is_ghost_job = 1 THEN 1 ELSE 0 END) AS flagged,
		        AVG(ghost_score) AS avg_score
		 FROM job_postings
		 WHERE company <> ''
		 GROUP BY company
		 HAVING COUNT(*) >= ?
		 ORDER BY SUM(CASE WHEN is_ghost_job = 1 THEN 1 ELSE 0 END) * 1.0 / COUNT(*) DESC, avg_score DESC, company
		 LIMIT ?`,
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

// Close closes the connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNull(layout string, v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(layout, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
