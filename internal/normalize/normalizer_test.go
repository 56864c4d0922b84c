package normalize_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/ghostjob-service/internal/model"
	"jobmate/ghostjob-service/internal/normalize"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return now.AddDate(0, 0, -n) }

func TestNormalize_DerivedFields(t *testing.T) {
	n := normalize.New(0)
	raw := model.RawRecord{
		"job_id":      float64(77),
		"source":      "Greenhouse",
		"title":       "  Data   Engineer ",
		"company":     "Tech Corp",
		"location":    "Helsinki, Finland (Hybrid)",
		"description": "We use Python, python and SQL.  PYTHON again on AWS.",
		"job_url":     "https://example.com/jobs/77",
		"posted_date": "2026-03-05",
		"created_at":  "2026-03-05T09:00:00Z",
		"updated_at":  "2026-03-07T09:00:00Z",
		"salary_min":  "50000",
		"active":      "open",
	}

	p, anomalies := n.Normalize(raw, now)

	assert.Empty(t, anomalies)
	assert.Equal(t, "77", p.JobID)
	assert.Equal(t, model.SourceGreenhouse, p.Source)
	assert.Equal(t, "Data Engineer", p.Title)
	assert.Equal(t, model.LocationHybrid, p.LocationType)
	require.NotNil(t, p.DaysSincePosted)
	assert.Equal(t, 10, *p.DaysSincePosted)
	assert.Equal(t, 10, p.DescriptionWordCount)
	assert.Equal(t, []string{"aws", "python", "sql"}, p.DetectedKeywords)
	assert.Equal(t, len(p.DetectedKeywords), p.KeywordCount)
	require.NotNil(t, p.SalaryMin)
	assert.Equal(t, 50000.0, *p.SalaryMin)
	assert.Nil(t, p.SalaryMax)
	assert.True(t, p.Active)
	assert.Equal(t, now, p.ExtractedAt)
}

func TestNormalize_MissingPostedDateDegrades(t *testing.T) {
	n := normalize.New(0)
	p, anomalies := n.Normalize(model.RawRecord{
		"job_id":  "x",
		"title":   "Analyst",
		"job_url": "https://example.com/x",
	}, now)

	assert.Nil(t, p.DaysSincePosted)
	assert.Equal(t, 0, p.DescriptionWordCount)
	assert.Equal(t, 0, p.KeywordCount)
	assert.Empty(t, p.DetectedKeywords)
	assert.Equal(t, model.LocationUnknown, p.LocationType)
	assert.Equal(t, model.SourceOther, p.Source)
	assert.Contains(t, anomalies, normalize.AnomalyPostedDateMissing)
	assert.Contains(t, anomalies, normalize.AnomalyDescriptionMissing)
	assert.Contains(t, anomalies, normalize.AnomalyCompanyMissing)
}

func TestNormalize_FuturePostedDateClampsToZero(t *testing.T) {
	n := normalize.New(0)
	p, anomalies := n.Normalize(model.RawRecord{
		"job_id":      "x",
		"posted_date": "2026-03-20",
	}, now)

	require.NotNil(t, p.DaysSincePosted)
	assert.Equal(t, 0, *p.DaysSincePosted)
	assert.Contains(t, anomalies, normalize.AnomalyPostedDateFuture)
}

func TestNormalize_CompanyFallsBackToSourceCompany(t *testing.T) {
	n := normalize.New(0)
	p, _ := n.Normalize(model.RawRecord{"job_id": "x", "source_company": "techcorp"}, now)
	assert.Equal(t, "techcorp", p.Company)
	assert.Equal(t, "techcorp", p.SourceCompany)
}

func TestNormalize_TruncatesLongDescription(t *testing.T) {
	n := normalize.New(0)
	long := strings.Repeat("ä", normalize.MaxDescriptionRunes+5)
	p, anomalies := n.Normalize(model.RawRecord{"job_id": "x", "description": long}, now)
	assert.Equal(t, normalize.MaxDescriptionRunes, len([]rune(p.Description)))
	assert.Contains(t, anomalies, normalize.AnomalyDescriptionTrimmed)
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"", []string{}},
		{"C++ and Node.js with CI/CD", []string{"c++", "ci/cd", "node.js"}},
		{"JavaScript only", []string{"javascript"}},
		{"Google Docs and Gophers", []string{}},
		{"Machine Learning, machine learning, MACHINE LEARNING", []string{"machine learning"}},
		{"Go, go, GO!", []string{"go"}},
	}
	for _, tt := range tests {
		got := normalize.ExtractKeywords(tt.text)
		assert.Equal(t, tt.want, got, "text %q", tt.text)
	}
}

func TestClassifyLocation(t *testing.T) {
	assert.Equal(t, model.LocationRemote, normalize.ClassifyLocation("Remote", ""))
	assert.Equal(t, model.LocationHybrid, normalize.ClassifyLocation("Hybrid, partially remote", ""))
	assert.Equal(t, model.LocationOnsite, normalize.ClassifyLocation("Espoo", "This role is on-site."))
	assert.Equal(t, model.LocationUnknown, normalize.ClassifyLocation("Helsinki", "Great team."))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "acme staffing inc", normalize.Key("Acme Staffing, Inc."))
	assert.Equal(t, normalize.Key("ACME  staffing inc"), normalize.Key("Acme Staffing, Inc."))
	assert.Equal(t, "", normalize.Key(" -- "))
}

func TestIndex_PostingFrequency(t *testing.T) {
	history := []model.HistoryEntry{
		{JobID: "h1", Company: "Acme", Title: "Dev", Location: "Oulu", PostedDate: daysAgo(1)},
		{JobID: "h2", Company: "ACME", Title: "QA", Location: "Oulu", PostedDate: daysAgo(2)},
		{JobID: "h3", Company: "acme", Title: "Ops", Location: "Oulu", PostedDate: daysAgo(10)},
		{JobID: "h4", Company: "Acme", Title: "Old", Location: "Oulu", PostedDate: daysAgo(40)},
		{JobID: "other", Company: "Other Oy", Title: "Dev", Location: "Oulu", PostedDate: daysAgo(1)},
	}
	posted := daysAgo(0)
	batch := []model.JobPosting{
		{JobID: "b1", Company: "Acme", Title: "Data Engineer", Location: "Oulu", PostedDate: &posted},
		// Re-ingested h1 must not be counted twice.
		{JobID: "h1", Company: "Acme", Title: "Dev", Location: "Oulu", PostedDate: &posted},
	}

	idx := normalize.BuildIndex(history, batch, now, 30)
	p := batch[0]
	idx.Enrich(&p)

	assert.InDelta(t, 4.0*7/30, p.PostsPerWeek, 1e-9)
	assert.InDelta(t, 3.0/7, p.PostingVelocity, 1e-9)
	assert.False(t, p.IsRepost)
}

func TestIndex_Repost(t *testing.T) {
	history := []model.HistoryEntry{
		{JobID: "h1", Company: "Acme Oy", Title: "Data Engineer", Location: "Helsinki", PostedDate: daysAgo(20)},
	}
	today := daysAgo(0)
	older := daysAgo(20)

	idx := normalize.BuildIndex(history, nil, now, 30)

	repost := model.JobPosting{JobID: "b1", Company: "ACME OY", Title: "data engineer", Location: "Helsinki", PostedDate: &today}
	idx.Enrich(&repost)
	assert.True(t, repost.IsRepost)

	sameDay := model.JobPosting{JobID: "b2", Company: "Acme Oy", Title: "Data Engineer", Location: "Helsinki", PostedDate: &older}
	idx.Enrich(&sameDay)
	assert.False(t, sameDay.IsRepost)

	otherCity := model.JobPosting{JobID: "b3", Company: "Acme Oy", Title: "Data Engineer", Location: "Tampere", PostedDate: &today}
	idx.Enrich(&otherCity)
	assert.False(t, otherCity.IsRepost)

	undated := model.JobPosting{JobID: "b4", Company: "Acme Oy", Title: "Data Engineer", Location: "Helsinki"}
	idx.Enrich(&undated)
	assert.False(t, undated.IsRepost)
}

func TestNormalizeBatch_UsesBatchForAggregates(t *testing.T) {
	n := normalize.New(30)
	raws := []model.RawRecord{
		{"job_id": "a", "company": "Bulk Hiring", "title": "Dev", "location": "Oulu", "posted_date": "2026-03-01"},
		{"job_id": "b", "company": "Bulk Hiring", "title": "Dev", "location": "Oulu", "posted_date": "2026-03-14"},
		{"job_id": "c", "company": "Solo Oy", "title": "Dev", "location": "Oulu", "posted_date": "2026-03-14"},
	}

	postings, anomalies := n.NormalizeBatch(raws, nil, now)

	require.Len(t, postings, 3)
	require.Len(t, anomalies, 3)
	assert.Equal(t, "a", postings[0].JobID)
	assert.False(t, postings[0].IsRepost)
	assert.True(t, postings[1].IsRepost)
	assert.False(t, postings[2].IsRepost)
	assert.InDelta(t, 2.0*7/30, postings[0].PostsPerWeek, 1e-9)
	assert.InDelta(t, 1.0*7/30, postings[2].PostsPerWeek, 1e-9)
}

func TestNormalizeBatch_StoredPostedDateWins(t *testing.T) {
	n := normalize.New(30)
	stored := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	history := []model.HistoryEntry{{JobID: "li-9", Company: "Acme", Title: "Dev", Location: "Oulu", PostedDate: stored}}
	raws := []model.RawRecord{
		{"job_id": "li-9", "company": "Acme", "title": "Dev", "location": "Oulu", "posted_date": "Posted today"},
		{"job_id": "li-9", "company": "Acme", "title": "Dev", "location": "Oulu"},
		{"job_id": "li-10", "company": "Acme", "title": "Dev", "location": "Oulu", "posted_date": "Posted today"},
	}

	postings, anomalies := n.NormalizeBatch(raws, history, now)

	for i := 0; i < 2; i++ {
		require.NotNil(t, postings[i].PostedDate)
		assert.True(t, stored.Equal(*postings[i].PostedDate))
		require.NotNil(t, postings[i].DaysSincePosted)
		assert.Equal(t, 73, *postings[i].DaysSincePosted)
		assert.Contains(t, anomalies[i], normalize.AnomalyPostedDateKept)
		assert.NotContains(t, anomalies[i], normalize.AnomalyPostedDateMissing)
		assert.False(t, postings[i].IsRepost)
	}

	require.NotNil(t, postings[2].DaysSincePosted)
	assert.Equal(t, 0, *postings[2].DaysSincePosted)
	assert.NotContains(t, anomalies[2], normalize.AnomalyPostedDateKept)
	assert.True(t, postings[2].IsRepost)
}

func TestNormalizeBatch_RepostBeyondWindow(t *testing.T) {
	n := normalize.New(30)
	history := []model.HistoryEntry{{JobID: "old", Company: "Acme", Title: "Dev", Location: "Oulu", PostedDate: daysAgo(90)}}

	postings, _ := n.NormalizeBatch([]model.RawRecord{
		{"job_id": "new", "company": "Acme", "title": "Dev", "location": "Oulu", "posted_date": "2026-03-15"},
	}, history, now)

	assert.True(t, postings[0].IsRepost)
	assert.InDelta(t, 1.0*7/30, postings[0].PostsPerWeek, 1e-9)
}
