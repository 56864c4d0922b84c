package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"jobmate/ghostjob-service/internal/model"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 3 // max 150 results per query
)

// AdzunaQuery is one (what, where) search.
type AdzunaQuery struct {
	What  string `yaml:"what" validate:"required"`
	Where string `yaml:"where"`
}

// Adzuna fetches postings from the Adzuna search API.
// Without credentials Fetch returns nothing and logs a warning.
type Adzuna struct {
	AppID   string
	AppKey  string
	Country string // "fi", "gb", "us", …
	Queries []AdzunaQuery
	BaseURL string // overridable in tests

	client *http.Client
	log    *slog.Logger
}

// NewAdzuna constructs an Adzuna source with its own HTTP client.
func NewAdzuna(appID, appKey, country string, queries []AdzunaQuery, log *slog.Logger) *Adzuna {
	if log == nil {
		log = slog.Default()
	}
	return &Adzuna{
		AppID:   appID,
		AppKey:  appKey,
		Country: country,
		Queries: queries,
		BaseURL: adzunaBaseURL,
		client:  newHTTPClient(),
		log:     log,
	}
}

func (a *Adzuna) Name() string { return "adzuna" }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

// adzunaResult mirrors a single Adzuna job listing.
type adzunaResult struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Company     adzunaName `json:"company"`
	Location    adzunaName `json:"location"`
	SalaryMin   *float64   `json:"salary_min"`
	SalaryMax   *float64   `json:"salary_max"`
	RedirectURL string     `json:"redirect_url"`
	Created     string     `json:"created"`
}

type adzunaName struct {
	DisplayName string `json:"display_name"`
}

// Fetch runs every configured query, paging until a short page or
// adzunaMaxPages. A failing query stops the fetch and returns what was
// collected so far with the error.
func (a *Adzuna) Fetch(ctx context.Context) ([]model.RawRecord, error) {
	if a.AppID == "" || a.AppKey == "" {
		a.log.Warn("ADZUNA_APP_ID / ADZUNA_APP_KEY not set, skipping adzuna")
		return nil, nil
	}

	var records []model.RawRecord
	for _, q := range a.Queries {
		for page := 1; page <= adzunaMaxPages; page++ {
			batch, err := a.fetchPage(ctx, q, page)
			if err != nil {
				return records, fmt.Errorf("adzuna %q in %q page %d: %w", q.What, q.Where, page, err)
			}
			records = append(records, batch...)
			if len(batch) < adzunaPageSize {
				break
			}
		}
	}
	return records, nil
}

func (a *Adzuna) fetchPage(ctx context.Context, q AdzunaQuery, page int) ([]model.RawRecord, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", a.BaseURL, url.PathEscape(a.Country), page)

	params := url.Values{}
	params.Set("app_id", a.AppID)
	params.Set("app_key", a.AppKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", q.What)
	if q.Where != "" {
		params.Set("where", q.Where)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, truncateBody(body))
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	records := make([]model.RawRecord, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		rec := model.RawRecord{
			"job_id":         "adzuna-" + r.ID,
			"source":         string(model.SourceAdzuna),
			"title":          r.Title,
			"company":        r.Company.DisplayName,
			"source_company": r.Company.DisplayName,
			"location":       r.Location.DisplayName,
			"description":    r.Description,
			"job_url":        r.RedirectURL,
			"posted_date":    r.Created,
			"created_at":     r.Created,
			"active":         true,
		}
		if r.SalaryMin != nil {
			rec["salary_min"] = *r.SalaryMin
		}
		if r.SalaryMax != nil {
			rec["salary_max"] = *r.SalaryMax
		}
		records = append(records, rec)
	}
	return records, nil
}

func truncateBody(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "…"
	}
	return string(b)
}
