// Package normalize maps source-shaped raw records onto the canonical
// JobPosting and fills every derived feature the rules read.
//
// Normalization never fails a record. A missing or unusable input degrades
// to a documented default and is reported as an anomaly:
//
//	posted_date missing      days_since_posted stays nil (age rules do not fire)
//	posted_date in future    days_since_posted clamps to 0
//	description missing      word count 0, no keywords
//	description too long     truncated to MaxDescriptionRunes
//	company missing          source_company is used; no company aggregates
//	job_id already stored    the stored posted_date wins over the new one
package normalize

import (
	"time"

	"jobmate/ghostjob-service/internal/dateparse"
	"jobmate/ghostjob-service/internal/model"
)

// Anomaly labels returned alongside a normalized posting.
const (
	AnomalyPostedDateMissing  = "posted_date_missing"
	AnomalyPostedDateFuture   = "posted_date_in_future"
	AnomalyDescriptionMissing = "description_missing"
	AnomalyDescriptionTrimmed = "description_truncated"
	AnomalyCompanyMissing     = "company_missing"
	AnomalyDateIgnored        = "date_ignored"
	AnomalyPostedDateKept     = "posted_date_kept"
)

// Normalizer converts raw records. The zero value is not usable; call New.
type Normalizer struct {
	windowDays int
}

// New returns a Normalizer whose company aggregates use windowDays
// (DefaultWindowDays when ≤ 0).
func New(windowDays int) *Normalizer {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Normalizer{windowDays: windowDays}
}

// Normalize builds the per-record part of a JobPosting. Company-level
// fields (posts_per_week, posting_velocity, is_repost) are left zero; they
// need the whole batch, see NormalizeBatch.
func (n *Normalizer) Normalize(raw model.RawRecord, now time.Time) (model.JobPosting, []string) {
	var anomalies []string

	p := model.JobPosting{
		JobID:         raw.String("job_id"),
		Source:        model.ParseSource(raw.String("source")),
		SourceCompany: Clean(raw.String("source_company")),
		Title:         Clean(raw.String("title")),
		Company:       Clean(raw.String("company")),
		Location:      Clean(raw.String("location")),
		Description:   Clean(raw.String("description")),
		JobURL:        raw.String("job_url"),
		ExtractedAt:   now.UTC(),
		Active:        true,
	}

	if p.Company == "" {
		p.Company = p.SourceCompany
		if p.Company == "" {
			anomalies = append(anomalies, AnomalyCompanyMissing)
		}
	}

	if d, trimmed := truncateRunes(p.Description, MaxDescriptionRunes); trimmed {
		p.Description = d
		anomalies = append(anomalies, AnomalyDescriptionTrimmed)
	}
	if p.Description == "" {
		anomalies = append(anomalies, AnomalyDescriptionMissing)
	}

	if active, ok := raw.Bool("active"); ok {
		p.Active = active
	}
	if v, ok := raw.Float("salary_min"); ok {
		p.SalaryMin = &v
	}
	if v, ok := raw.Float("salary_max"); ok {
		p.SalaryMax = &v
	}

	dates := []struct {
		field string
		dst   **time.Time
	}{
		{"posted_date", &p.PostedDate},
		{"created_at", &p.CreatedAt},
		{"updated_at", &p.UpdatedAt},
	}
	for _, d := range dates {
		if !raw.Present(d.field) {
			continue
		}
		t, err := dateparse.Parse(raw[d.field], now)
		if err != nil {
			anomalies = append(anomalies, AnomalyDateIgnored+":"+d.field)
			continue
		}
		*d.dst = &t
	}

	anomalies = append(anomalies, setAge(&p, now)...)

	p.LocationType = ClassifyLocation(p.Location, p.Description)
	p.DescriptionWordCount = WordCount(p.Description)
	p.DetectedKeywords = ExtractKeywords(p.Description)
	p.KeywordCount = len(p.DetectedKeywords)

	return p, anomalies
}

// NormalizeBatch normalizes every raw record, builds the company activity
// index once from history plus the batch, then enriches each posting from
// it. A posting whose job_id is already in history is aged from the stored
// posted_date, so re-extraction cannot reset its age. Output order matches
// input order.
func (n *Normalizer) NormalizeBatch(raws []model.RawRecord, history []model.HistoryEntry, now time.Time) ([]model.JobPosting, [][]string) {
	known := firstPosted(history)
	postings := make([]model.JobPosting, len(raws))
	anomalies := make([][]string, len(raws))
	for i, raw := range raws {
		postings[i], anomalies[i] = n.Normalize(raw, now)
		if posted, ok := known[postings[i].JobID]; ok {
			anomalies[i] = keepPostedDate(&postings[i], posted, anomalies[i], now)
		}
	}

	idx := BuildIndex(history, postings, now, n.windowDays)
	for i := range postings {
		idx.Enrich(&postings[i])
	}
	return postings, anomalies
}

// setAge fills DaysSincePosted from PostedDate as of now.
func setAge(p *model.JobPosting, now time.Time) []string {
	p.DaysSincePosted = nil
	if p.PostedDate == nil {
		return []string{AnomalyPostedDateMissing}
	}
	days := dateparse.DaysBetween(*p.PostedDate, now)
	if days < 0 {
		p.DaysSincePosted = new(int)
		return []string{AnomalyPostedDateFuture}
	}
	p.DaysSincePosted = &days
	return nil
}

// keepPostedDate replaces p's posted_date with the stored one and re-ages p.
func keepPostedDate(p *model.JobPosting, posted time.Time, anomalies []string, now time.Time) []string {
	if p.PostedDate != nil && dateparse.Day(*p.PostedDate).Equal(dateparse.Day(posted)) {
		return anomalies
	}
	kept := anomalies[:0:0]
	for _, a := range anomalies {
		if a != AnomalyPostedDateMissing && a != AnomalyPostedDateFuture {
			kept = append(kept, a)
		}
	}
	p.PostedDate = &posted
	kept = append(kept, AnomalyPostedDateKept)
	return append(kept, setAge(p, now)...)
}

// firstPosted maps each stored job_id to its earliest posted_date.
func firstPosted(history []model.HistoryEntry) map[string]time.Time {
	out := make(map[string]time.Time, len(history))
	for _, h := range history {
		if h.JobID == "" || h.PostedDate.IsZero() {
			continue
		}
		if prev, ok := out[h.JobID]; !ok || h.PostedDate.Before(prev) {
			out[h.JobID] = h.PostedDate.UTC()
		}
	}
	return out
}
