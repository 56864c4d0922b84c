// Package api serves the scoring engine and the stored results over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"jobmate/ghostjob-service/internal/model"
	"jobmate/ghostjob-service/internal/pipeline"
	"jobmate/ghostjob-service/internal/source"
	"jobmate/ghostjob-service/internal/store"
)

const (
	maxBodyBytes       = 16 << 20
	defaultMinPostings = 3
	defaultReportLimit = 20
	maxReportLimit     = 500
)

// Reader is the read side of the store the handlers need.
type Reader interface {
	GetPosting(ctx context.Context, jobID string) (*model.JobPosting, error)
	GetRun(ctx context.Context, runID string) (*model.BatchSummary, error)
	SuspiciousCompanies(ctx context.Context, minPostings, limit int) ([]model.CompanyStats, error)
}

// Handler holds the dependencies of every route.
type Handler struct {
	store Reader
	pipe  *pipeline.Pipeline
	log   *slog.Logger
	clock func() time.Time
}

// NewHandler returns a Handler. A nil log falls back to slog.Default.
func NewHandler(st Reader, pipe *pipeline.Pipeline, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: st, pipe: pipe, log: log, clock: time.Now}
}

// WithClock replaces the clock used as the reference time of ad-hoc scoring.
func (h *Handler) WithClock(clock func() time.Time) *Handler {
	h.clock = clock
	return h
}

// Routes builds the router.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logging)
	r.Use(h.recovery)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/score", h.Score).Methods(http.MethodPost)
	v1.HandleFunc("/postings/{id}", h.GetPosting).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}", h.GetRun).Methods(http.MethodGet)
	v1.HandleFunc("/companies/suspicious", h.SuspiciousCompanies).Methods(http.MethodGet)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "ghostjob-service"})
}

// Score scores the posted raw records: a JSON array or JSON lines. With
// ?persist=true the batch runs through the full pipeline and is stored;
// otherwise it is scored against stored history and only returned.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	raws, err := source.Decode(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	persist, _ := strconv.ParseBool(r.URL.Query().Get("persist"))
	now := h.clock()

	var res pipeline.BatchResult
	if persist {
		res, err = h.pipe.Run(r.Context(), raws, now)
	} else {
		var history []model.HistoryEntry
		history, err = h.pipe.History(r.Context())
		if err == nil {
			res = h.pipe.Engine().ScoreBatch(raws, history, now)
		}
	}
	if err != nil {
		h.log.Error("score request failed", "records", len(raws), "persist", persist, "err", err)
		writeError(w, http.StatusServiceUnavailable, "scoring unavailable")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) GetPosting(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetPosting(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.storeError(w, "get posting", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetRun(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.storeError(w, "get run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// SuspiciousCompanies reports the companies with the highest share of
// flagged postings. Query: min (postings per company), limit.
func (h *Handler) SuspiciousCompanies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minPostings, ok := intParam(q.Get("min"), defaultMinPostings)
	if !ok || minPostings < 1 {
		writeError(w, http.StatusBadRequest, "min must be a positive integer")
		return
	}
	limit, ok := intParam(q.Get("limit"), defaultReportLimit)
	if !ok || limit < 1 || limit > maxReportLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxReportLimit))
		return
	}

	stats, err := h.store.SuspiciousCompanies(r.Context(), minPostings, limit)
	if err != nil {
		h.storeError(w, "suspicious companies", err)
		return
	}
	if stats == nil {
		stats = []model.CompanyStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	h.log.Error(op+" failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func intParam(s string, def int) (int, bool) {
	if s == "" {
		return def, true
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
