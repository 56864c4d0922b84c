// jobmate-ghostjob-service
//
// Scores job postings for the likelihood that they are ghost jobs.
//   - Periodic passes: collect from Adzuna, Greenhouse and an input file,
//     run the quality gate, normalizer, rules and scorer, persist results
//   - REST API: ad-hoc scoring, posting lookup, run summaries and the
//     suspicious-company report
//
// Publishes EVENT_GHOST_BATCH_SCORED to Redis after every pass when
// REDIS_URL is set. Run with -once to score a single pass and exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"jobmate/ghostjob-service/internal/api"
	"jobmate/ghostjob-service/internal/config"
	"jobmate/ghostjob-service/internal/db"
	"jobmate/ghostjob-service/internal/events"
	"jobmate/ghostjob-service/internal/pipeline"
	"jobmate/ghostjob-service/internal/scheduler"
	"jobmate/ghostjob-service/internal/source"
	"jobmate/ghostjob-service/internal/store"
)

const version = "1.0.0"

func main() {
	once := flag.Bool("once", false, "run a single scoring pass and exit")
	flag.Parse()

	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ghostjob-service] Config error: %v", err)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ── Store ────────────────────────────────────────────────────────────────
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[ghostjob-service] Store: %v", err)
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		log.Fatalf("[ghostjob-service] Migrate: %v", err)
	}
	log.Printf("[ghostjob-service] %s store ready ✓", cfg.StoreDriver)

	// ── Redis ────────────────────────────────────────────────────────────────
	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[ghostjob-service] Redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
		opts = append(opts, pipeline.WithPublisher(events.NewRedisPublisher(rdb)))
		log.Println("[ghostjob-service] Redis connected ✓")
	} else {
		log.Println("[ghostjob-service] REDIS_URL not set, batch events disabled")
	}

	// ── Scoring ──────────────────────────────────────────────────────────────
	engine, err := pipeline.NewEngine(pipeline.EngineConfig{
		Params:     cfg.RuleParams(),
		WindowDays: cfg.HistoryWindowDays,
		Workers:    cfg.Workers,
	})
	if err != nil {
		log.Fatalf("[ghostjob-service] Engine: %v", err)
	}
	pipe := pipeline.New(engine, st, opts...)
	sched := scheduler.New(pipe, buildSources(cfg, logger), cfg.ScoreIntervalHours, logger)

	if *once {
		res, err := sched.RunOnce(ctx)
		if err != nil {
			log.Fatalf("[ghostjob-service] Scoring pass: %v", err)
		}
		s := res.Summary
		log.Printf("[ghostjob-service] Pass %s: %d records, %d scored, %d flagged, %d rejected, %d failed",
			s.RunID, s.Total, s.Scored, s.GhostFlagged, s.Rejected, s.Failed)
		return
	}

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[ghostjob-service] Scheduler: %v", err)
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	h := api.NewHandler(st, pipe, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      h.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("[ghostjob-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[ghostjob-service] HTTP server error: %v", err)
			cancel()
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	<-ctx.Done()

	log.Println("[ghostjob-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ghostjob-service] Shutdown error: %v", err)
	}
	sched.Stop()
	log.Println("[ghostjob-service] Stopped.")
}

// openStore connects to the configured driver and wraps it in a Store.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(pool), nil
	default:
		conn, err := db.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store.NewSQLiteStore(conn), nil
	}
}

func buildSources(cfg *config.Config, logger *slog.Logger) []source.Source {
	var sources []source.Source
	if cfg.Adzuna.AppID != "" && len(cfg.Adzuna.Queries) > 0 {
		sources = append(sources, source.NewAdzuna(cfg.Adzuna.AppID, cfg.Adzuna.AppKey, cfg.Adzuna.Country, cfg.Adzuna.Queries, logger))
	}
	if len(cfg.GreenhouseBoards) > 0 {
		sources = append(sources, source.NewGreenhouse(cfg.GreenhouseBoards, logger))
	}
	if cfg.InputFile != "" {
		sources = append(sources, source.NewFile(cfg.InputFile))
	}
	if len(sources) == 0 {
		log.Println("[ghostjob-service] No sources configured, scheduled passes will be empty")
	}
	return sources
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
