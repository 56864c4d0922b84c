// Package scheduler wires up the cron job that periodically collects raw
// records from all sources and runs a scoring pass over them.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobmate/ghostjob-service/internal/model"
	"jobmate/ghostjob-service/internal/pipeline"
	"jobmate/ghostjob-service/internal/source"
)

// ErrBusy is returned by RunOnce while another pass is still running.
var ErrBusy = errors.New("scoring pass already running")

// Runner scores one batch of raw records.
type Runner interface {
	Run(ctx context.Context, raws []model.RawRecord, now time.Time) (pipeline.BatchResult, error)
}

// Scheduler wraps robfig/cron and manages the scoring loop.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	sources []source.Source
	spec    string // cron spec, e.g. "@every 6h"
	clock   func() time.Time
	log     *slog.Logger

	running sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// New creates a Scheduler that fires every intervalHours hours.
func New(runner Runner, sources []source.Source, intervalHours int, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelDebug)))),
		runner:  runner,
		sources: sources,
		spec:    fmt.Sprintf("@every %dh", intervalHours),
		clock:   time.Now,
		log:     log,
	}
}

// WithClock replaces the clock that supplies each pass's reference time.
func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	return s
}

// Start registers the job and starts the scheduler. Also runs one pass
// immediately so results exist without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	_, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) })
	if err != nil {
		cancel()
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("cron started", "spec", s.spec, "sources", len(s.sources))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tick(ctx)
	}()

	return nil
}

// Stop cancels a running pass and waits for it and the cron loop to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("cron stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrBusy) {
			s.log.Warn("skipping tick, previous pass still running")
			return
		}
		s.log.Error("scoring pass failed", "err", err)
	}
}

// RunOnce collects from every source and scores the result. Passes never
// overlap: a call made while one is running returns ErrBusy.
func (s *Scheduler) RunOnce(ctx context.Context) (pipeline.BatchResult, error) {
	if !s.running.TryLock() {
		return pipeline.BatchResult{}, ErrBusy
	}
	defer s.running.Unlock()

	s.log.Info("scoring cycle started")
	raws := source.Collect(ctx, s.sources, s.log)
	if err := ctx.Err(); err != nil {
		return pipeline.BatchResult{}, err
	}
	if len(raws) == 0 {
		s.log.Info("no raw records collected, nothing to score")
		return pipeline.BatchResult{}, nil
	}

	res, err := s.runner.Run(ctx, raws, s.clock())
	if err != nil {
		return res, fmt.Errorf("run: %w", err)
	}
	s.log.Info("scoring cycle complete", "run_id", res.Summary.RunID, "records", len(raws))
	return res, nil
}
