package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"jobmate/ghostjob-service/internal/model"
)

// HistoryStore returns every previously persisted posting that has a
// posted_date. Reposts are matched against all of it; only the frequency
// counts are windowed, and the index does that.
type HistoryStore interface {
	LoadHistory(ctx context.Context) ([]model.HistoryEntry, error)
}

// Sink persists the results of a pass.
type Sink interface {
	UpsertPostings(ctx context.Context, postings []model.JobPosting) error
	SaveRejections(ctx context.Context, runID string, rejections []model.Rejection) error
	SaveRun(ctx context.Context, summary model.BatchSummary) error
}

// Store is a HistoryStore that is also the Sink, which is how both store
// implementations are shaped.
type Store interface {
	HistoryStore
	Sink
}

// Publisher announces a finished pass. Failures are logged, never fatal.
type Publisher interface {
	PublishSummary(ctx context.Context, summary model.BatchSummary) error
}

// Pipeline runs Engine passes against a store.
type Pipeline struct {
	engine *Engine
	store  Store
	pub    Publisher
	log    *slog.Logger
	clock  func() time.Time
	newID  func() string
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithPublisher sets the batch-summary publisher. Without one, summaries
// are only logged and stored.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.pub = pub }
}

// WithLogger sets the logger (slog.Default otherwise).
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock overrides the wall clock used for run start and finish stamps.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// New returns a Pipeline over engine and store.
func New(engine *Engine, store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine: engine,
		store:  store,
		log:    slog.Default(),
		clock:  time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Engine returns the scoring core, for callers that score without persisting.
func (p *Pipeline) Engine() *Engine { return p.engine }

// History loads the stored postings batches are scored against.
func (p *Pipeline) History(ctx context.Context) ([]model.HistoryEntry, error) {
	history, err := p.store.LoadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}

// Run scores raws as of now and persists the outcome.
//
// Per-record problems never fail the run. A failing history lookup or store
// write does: without history the company aggregates would be wrong, so
// nothing is scored.
func (p *Pipeline) Run(ctx context.Context, raws []model.RawRecord, now time.Time) (BatchResult, error) {
	started := p.clock().UTC()
	runID := p.newID()
	log := p.log.With("run_id", runID)

	history, err := p.History(ctx)
	if err != nil {
		return BatchResult{}, err
	}

	res := p.engine.ScoreBatch(raws, history, now)
	res.Summary.RunID = runID
	res.Summary.StartedAt = started

	if err := p.store.UpsertPostings(ctx, res.Postings); err != nil {
		return res, fmt.Errorf("upsert postings: %w", err)
	}
	if err := p.store.SaveRejections(ctx, runID, res.Rejections); err != nil {
		return res, fmt.Errorf("save rejections: %w", err)
	}

	res.Summary.FinishedAt = p.clock().UTC()
	if err := p.store.SaveRun(ctx, res.Summary); err != nil {
		return res, fmt.Errorf("save run: %w", err)
	}

	for _, o := range res.Outcomes {
		if o.Status == model.StatusFailed {
			log.Error("posting failed consistency check", "index", o.Index, "reasons", o.Reasons)
		}
		if len(o.Anomalies) > 0 {
			log.Debug("normalization anomalies", "index", o.Index, "anomalies", o.Anomalies)
		}
	}

	s := res.Summary
	log.Info("scoring pass complete",
		"total", s.Total, "scored", s.Scored, "rejected", s.Rejected,
		"flagged", s.GhostFlagged, "failed", s.Failed,
		"history", len(history))

	if p.pub != nil {
		if err := p.pub.PublishSummary(ctx, s); err != nil {
			log.Warn("publish batch summary failed", "err", err)
		}
	}

	return res, nil
}
