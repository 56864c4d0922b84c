package dateparse_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/ghostjob-service/internal/dateparse"
)

var now = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

func TestParse_Formats(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want time.Time
	}{
		{"date only", "2026-01-27", time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)},
		{"rfc3339 zulu", "2026-01-27T10:00:00Z", time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC)},
		{"rfc3339 offset", "2026-01-27T10:00:00+02:00", time.Date(2026, 1, 27, 8, 0, 0, 0, time.UTC)},
		{"no zone", "2026-01-27T10:00:00", time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC)},
		{"space separated", "2026-01-27 10:00:00", time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC)},
		{"dd/mm/yyyy", "27/01/2026", time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)},
		{"dd.mm.yyyy", "27.01.2026", time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)},
		{"today", "Posted today", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"yesterday", "yesterday", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"days ago", "Posted 3 days ago", time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"weeks ago", "2 weeks ago", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"month ago", "1 month ago", time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)},
		{"hours ago", "5 hours ago", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"plus days", "Posted 30+ days ago", time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)},
		{"extra spaces", "  posted   just now ", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"time value", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dateparse.Parse(tt.in, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []any{
		"", "not a date", "2026-13-45", "01/27/2026", 42, nil,
		"not today, maybe 2027", "yesterday or tomorrow", "within 3 days", "3 days ago or later",
	} {
		_, err := dateparse.Parse(in, now)
		assert.Error(t, err, "input %v", in)
		assert.True(t, errors.Is(err, dateparse.ErrUnparseable), "input %v", in)
	}
}

func TestDaysBetween(t *testing.T) {
	posted := time.Date(2026, 1, 24, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 50, dateparse.DaysBetween(posted, now))
	assert.Equal(t, 0, dateparse.DaysBetween(now, now))
	assert.Equal(t, -1, dateparse.DaysBetween(now.AddDate(0, 0, 1), now))
}
