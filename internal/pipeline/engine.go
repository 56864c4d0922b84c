// Package pipeline runs scoring passes: the pure Engine that turns raw records
// into scored postings, and the Pipeline that wraps it with history lookup,
// persistence and event publishing.
package pipeline

import (
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"jobmate/ghostjob-service/internal/model"
	"jobmate/ghostjob-service/internal/normalize"
	"jobmate/ghostjob-service/internal/quality"
	"jobmate/ghostjob-service/internal/rules"
	"jobmate/ghostjob-service/internal/score"
)

// BatchResult is everything one pass produced. Outcomes has one entry per
// input record, in input order.
type BatchResult struct {
	Summary    model.BatchSummary `json:"summary"`
	Outcomes   []model.Outcome    `json:"outcomes"`
	Postings   []model.JobPosting `json:"-"`
	Rejections []model.Rejection  `json:"-"`
}

// Engine is the scoring core. It performs no I/O and holds no mutable
// state, so one Engine may serve concurrent batches.
type Engine struct {
	gate       *quality.Gate
	normalizer *normalize.Normalizer
	scorer     *score.Scorer
	workers    int
}

// EngineConfig holds the tunables of an Engine.
type EngineConfig struct {
	Params     rules.Params
	WindowDays int
	Workers    int
}

// NewEngine builds the gate, normalizer and scorer.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	gate, err := quality.NewGate()
	if err != nil {
		return nil, err
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = normalize.DefaultWindowDays
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		gate:       gate,
		normalizer: normalize.New(cfg.WindowDays),
		scorer:     score.NewScorer(rules.New(cfg.Params)),
		workers:    cfg.Workers,
	}, nil
}

// ScoreBatch gates, normalizes and scores raws against history as of now.
//
// Every input is accounted for exactly once: rejected by the gate, scored,
// or failed when a scored posting breaks a consistency check. A single bad
// record never affects the others.
func (e *Engine) ScoreBatch(raws []model.RawRecord, history []model.HistoryEntry, now time.Time) BatchResult {
	now = now.UTC()
	res := BatchResult{
		Summary: model.BatchSummary{
			Total:            len(raws),
			RejectionReasons: map[string]int{},
			ReferenceTime:    now,
		},
		Outcomes:   make([]model.Outcome, len(raws)),
		Postings:   []model.JobPosting{},
		Rejections: []model.Rejection{},
	}

	accepted, rejected := e.gate.Split(raws, now)
	for _, r := range rejected {
		res.Outcomes[r.Index] = model.Outcome{Index: r.Index, Status: model.StatusRejected, Reasons: r.Reasons}
		res.Rejections = append(res.Rejections, r)
		for _, reason := range r.Reasons {
			res.Summary.RejectionReasons[reason]++
		}
	}
	res.Summary.Rejected = len(rejected)

	acceptedRaws := make([]model.RawRecord, len(accepted))
	for i, a := range accepted {
		acceptedRaws[i] = a.Raw
	}
	postings, anomalies := e.normalizer.NormalizeBatch(acceptedRaws, history, now)

	// Each goroutine owns postings[i] and errs[i]; the index built by
	// NormalizeBatch is not touched again.
	errs := make([]error, len(postings))
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range postings {
		i := i
		g.Go(func() error {
			errs[i] = e.scorer.Score(&postings[i])
			return nil
		})
	}
	_ = g.Wait()

	for i, a := range accepted {
		out := model.Outcome{Index: a.Index, Anomalies: anomalies[i]}
		if err := errs[i]; err != nil {
			out.Status = model.StatusFailed
			out.Reasons = []string{failureReason(err)}
			res.Summary.Failed++
		} else {
			p := postings[i]
			out.Status = model.StatusScored
			out.Posting = &p
			res.Postings = append(res.Postings, p)
			res.Summary.Scored++
			if p.IsGhostJob {
				res.Summary.GhostFlagged++
			}
		}
		res.Outcomes[a.Index] = out
	}

	return res
}

func failureReason(err error) string {
	var ie *score.InvariantError
	if errors.As(err, &ie) {
		return quality.ReasonInvariantFailure + ":" + ie.Check
	}
	return quality.ReasonInvariantFailure
}
