// Package source fetches raw job records from the places postings come from:
// the Adzuna search API, Greenhouse job boards and local export files.
//
// Sources only reshape what they receive into flat raw records. They never
// validate or score; that happens in the pipeline.
package source

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"jobmate/ghostjob-service/internal/model"
)

const httpTimeout = 15 * time.Second

// Source produces raw records.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.RawRecord, error)
}

// Collect fetches from every source in turn. A failing source is logged
// and skipped; whatever it returned before failing is kept.
func Collect(ctx context.Context, sources []Source, log *slog.Logger) []model.RawRecord {
	if log == nil {
		log = slog.Default()
	}
	var all []model.RawRecord
	for _, s := range sources {
		if ctx.Err() != nil {
			break
		}
		recs, err := s.Fetch(ctx)
		if err != nil {
			log.Warn("source fetch failed", "source", s.Name(), "records", len(recs), "err", err)
		} else {
			log.Info("source fetched", "source", s.Name(), "records", len(recs))
		}
		all = append(all, recs...)
	}
	return all
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}
