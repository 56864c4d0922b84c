package pipeline_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/ghostjob-service/internal/model"
	"jobmate/ghostjob-service/internal/pipeline"
	"jobmate/ghostjob-service/internal/rules"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func filler(n int) string {
	return strings.TrimSpace(strings.Repeat("lorem ", n))
}

func ghostRaw() model.RawRecord {
	return model.RawRecord{
		"job_id":      "li-1",
		"source":      "linkedin",
		"title":       "Manager",
		"company":     "Acme Staffing Solutions",
		"location":    "Remote",
		"description": filler(14) + " python",
		"job_url":     "https://www.linkedin.com/jobs/view/1",
		"posted_date": "2026-01-24",
	}
}

func cleanRaw() model.RawRecord {
	desc := "Stack: python, sql, aws, docker, kubernetes, spark, airflow and git. " +
		"Salary €60,000 - €75,000 per year. " + filler(130)
	return model.RawRecord{
		"job_id":      "gh-2",
		"source":      "greenhouse",
		"title":       "Senior Data Scientist",
		"company":     "Tech Corp",
		"location":    "Helsinki, Finland",
		"description": desc,
		"job_url":     "https://boards.greenhouse.io/techcorp/jobs/2",
		"posted_date": "2026-03-10",
		"created_at":  "2026-03-10T08:00:00Z",
		"updated_at":  "2026-03-13T08:00:00Z",
	}
}

func newEngine(t *testing.T) *pipeline.Engine {
	t.Helper()
	e, err := pipeline.NewEngine(pipeline.EngineConfig{Params: rules.DefaultParams(), Workers: 2})
	require.NoError(t, err)
	return e
}

func TestScoreBatch_Scenarios(t *testing.T) {
	e := newEngine(t)
	res := e.ScoreBatch([]model.RawRecord{ghostRaw(), cleanRaw()}, nil, now)

	require.Len(t, res.Outcomes, 2)
	ghost := res.Outcomes[0].Posting
	require.NotNil(t, ghost)
	assert.Equal(t, 120, ghost.GhostScore)
	assert.Equal(t, model.ConfidenceVeryHigh, ghost.Confidence)
	assert.True(t, ghost.IsGhostJob)

	clean := res.Outcomes[1].Posting
	require.NotNil(t, clean)
	assert.Equal(t, 0, clean.GhostScore, clean.GhostJobReason)
	assert.Equal(t, model.ConfidenceVeryLow, clean.Confidence)
	assert.False(t, clean.IsGhostJob)
	assert.Equal(t, 8, clean.KeywordCount)

	assert.Equal(t, 2, res.Summary.Scored)
	assert.Equal(t, 1, res.Summary.GhostFlagged)
	assert.Equal(t, now, res.Summary.ReferenceTime)
}

func TestScoreBatch_EveryRecordAccountedFor(t *testing.T) {
	noTitle := ghostRaw()
	delete(noTitle, "title")
	badURL := cleanRaw()
	badURL["job_url"] = "not a url"
	badDate := cleanRaw()
	badDate["posted_date"] = "sometime soon"

	raws := []model.RawRecord{noTitle, ghostRaw(), badURL, cleanRaw(), badDate}
	res := newEngine(t).ScoreBatch(raws, nil, now)

	require.Len(t, res.Outcomes, len(raws))
	for i, o := range res.Outcomes {
		assert.Equal(t, i, o.Index)
		switch o.Status {
		case model.StatusScored:
			assert.NotNil(t, o.Posting)
		case model.StatusRejected:
			assert.NotEmpty(t, o.Reasons)
		default:
			t.Errorf("record %d has status %q", i, o.Status)
		}
	}

	assert.Equal(t, []string{"missing_field:title"}, res.Outcomes[0].Reasons)
	assert.Equal(t, []string{"invalid_url"}, res.Outcomes[2].Reasons)
	assert.Equal(t, []string{"unparseable_date:posted_date"}, res.Outcomes[4].Reasons)

	s := res.Summary
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Scored)
	assert.Equal(t, 3, s.Rejected)
	assert.Equal(t, 0, s.Failed)
	assert.Equal(t, s.Total, s.Scored+s.Rejected+s.Failed)
	assert.Equal(t, 1, s.RejectionReasons["invalid_url"])
	assert.Len(t, res.Rejections, 3)
	assert.Len(t, res.Postings, 2)
}

func TestScoreBatch_HistoryDrivesRepost(t *testing.T) {
	raw := cleanRaw()
	history := []model.HistoryEntry{{
		JobID:      "gh-1",
		Company:    "Tech Corp",
		Title:      "Senior Data Scientist",
		Location:   "Helsinki, Finland",
		PostedDate: now.AddDate(0, 0, -20),
	}}

	res := newEngine(t).ScoreBatch([]model.RawRecord{raw}, history, now)

	p := res.Outcomes[0].Posting
	require.NotNil(t, p)
	assert.True(t, p.IsRepost)
	assert.Equal(t, rules.WeightSuspiciousPattern, p.GhostScore)
	assert.Equal(t, "Suspicious posting pattern (repost)", p.GhostJobReason)
}

func TestScoreBatch_Deterministic(t *testing.T) {
	e := newEngine(t)
	raws := []model.RawRecord{ghostRaw(), cleanRaw()}
	a := e.ScoreBatch(raws, nil, now)
	b := e.ScoreBatch(raws, nil, now)
	for i := range raws {
		assert.Equal(t, a.Outcomes[i].Posting.GhostScore, b.Outcomes[i].Posting.GhostScore)
		assert.Equal(t, a.Outcomes[i].Posting.GhostJobReason, b.Outcomes[i].Posting.GhostJobReason)
	}
}

func TestScoreBatch_Empty(t *testing.T) {
	res := newEngine(t).ScoreBatch(nil, nil, now)
	assert.Empty(t, res.Outcomes)
	assert.Equal(t, 0, res.Summary.Total)
	assert.NotNil(t, res.Postings)
}

func TestScoreBatch_AnomaliesKeepRecord(t *testing.T) {
	raw := ghostRaw()
	delete(raw, "posted_date")
	res := newEngine(t).ScoreBatch([]model.RawRecord{raw}, nil, now)

	o := res.Outcomes[0]
	require.Equal(t, model.StatusScored, o.Status)
	assert.Contains(t, o.Anomalies, "posted_date_missing")
	assert.Nil(t, o.Posting.DaysSincePosted)
}
