package normalize

import (
	"time"

	"jobmate/ghostjob-service/internal/dateparse"
	"jobmate/ghostjob-service/internal/model"
)

// DefaultWindowDays is the trailing window posts_per_week is measured over.
const DefaultWindowDays = 30

// velocityWindowDays is the trailing window posting_velocity is measured over.
const velocityWindowDays = 7

type listingKey struct {
	company, title, location string
}

type dated struct {
	jobID  string
	posted time.Time
}

// Index is the read-only company activity lookup for one batch: every known
// posting from prior history plus the batch itself, each job_id once.
// It is built before scoring and never mutated afterwards, so it may be
// shared by concurrent Enrich calls.
type Index struct {
	now        time.Time
	windowDays int
	byCompany  map[string][]dated
	byListing  map[listingKey][]dated
}

// BuildIndex collects history and batch postings. A job_id seen in history
// keeps its historical posted_date. Postings without a company or a
// posted_date cannot be placed and are left out.
func BuildIndex(history []model.HistoryEntry, batch []model.JobPosting, now time.Time, windowDays int) *Index {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	idx := &Index{
		now:        now,
		windowDays: windowDays,
		byCompany:  make(map[string][]dated),
		byListing:  make(map[listingKey][]dated),
	}

	seen := make(map[string]bool, len(history)+len(batch))
	add := func(jobID, company, title, location string, posted time.Time) {
		if jobID == "" || seen[jobID] {
			return
		}
		seen[jobID] = true

		c := Key(company)
		if c == "" {
			return
		}
		d := dated{jobID: jobID, posted: dateparse.Day(posted)}
		idx.byCompany[c] = append(idx.byCompany[c], d)
		lk := listingKey{company: c, title: Key(title), location: Key(location)}
		idx.byListing[lk] = append(idx.byListing[lk], d)
	}

	for _, h := range history {
		if h.PostedDate.IsZero() {
			continue
		}
		add(h.JobID, h.Company, h.Title, h.Location, h.PostedDate)
	}
	for _, p := range batch {
		if p.PostedDate == nil {
			continue
		}
		add(p.JobID, p.Company, p.Title, p.Location, *p.PostedDate)
	}

	return idx
}

// Enrich fills posts_per_week, posting_velocity and is_repost on p.
//
//	posts_per_week   = company postings aged [0, window) days × 7 / window
//	posting_velocity = company postings aged [0, 7) days / 7   (per day)
//	is_repost        = another job_id with the same company, title and
//	                   location was posted on an earlier day
func (idx *Index) Enrich(p *model.JobPosting) {
	p.PostsPerWeek = 0
	p.PostingVelocity = 0
	p.IsRepost = false

	c := Key(p.Company)
	if c == "" {
		return
	}

	var inWindow, inWeek int
	for _, d := range idx.byCompany[c] {
		age := dateparse.DaysBetween(d.posted, idx.now)
		if age < 0 {
			continue
		}
		if age < idx.windowDays {
			inWindow++
		}
		if age < velocityWindowDays {
			inWeek++
		}
	}
	p.PostsPerWeek = float64(inWindow) * 7 / float64(idx.windowDays)
	p.PostingVelocity = float64(inWeek) / velocityWindowDays

	if p.PostedDate == nil {
		return
	}
	posted := dateparse.Day(*p.PostedDate)
	lk := listingKey{company: c, title: Key(p.Title), location: Key(p.Location)}
	for _, d := range idx.byListing[lk] {
		if d.jobID != p.JobID && d.posted.Before(posted) {
			p.IsRepost = true
			return
		}
	}
}
