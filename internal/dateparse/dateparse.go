// Package dateparse turns the date strings sources emit into time.Time.
//
// Accepted, in order:
//
//	ISO-8601     2026-01-27, 2026-01-27T10:00:00Z, 2026-01-27T10:00:00.123+02:00,
//	             2026-01-27T10:00:00, 2026-01-27 10:00:00
//	fallback     27/01/2026 (dd/mm/yyyy), 27.01.2026 (dd.mm.yyyy)
//	relative     today, just now, yesterday, "Posted 3 days ago", "2 weeks ago",
//	             "1 month ago" (30 days), "5 hours ago", "30+ days ago"
//
// A relative form must be the whole value, optionally prefixed by "Posted".
//
// Relative forms are resolved against the caller's reference time.
package dateparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseable is returned for values that match none of the formats.
var ErrUnparseable = errors.New("unparseable date")

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var fallbackLayouts = []string{
	"02/01/2006",
	"02.01.2006",
}

var (
	isoPrefix      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	relativeRegex  = regexp.MustCompile(`^(?:posted\s+)?(\d+)\+?\s*(minute|hour|day|week|month)s?\s+ago$`)
	todayRegex     = regexp.MustCompile(`^(?:posted\s+)?(?:today|just now)$`)
	yesterdayRegex = regexp.MustCompile(`^(?:posted\s+)?yesterday$`)
)

// Parse converts v to a UTC time. v may be a string, time.Time or *time.Time.
func Parse(v any, now time.Time) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, ErrUnparseable
		}
		return t.UTC(), nil
	case string:
		return parseString(t, now)
	}
	return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrUnparseable, v)
}

func parseString(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparseable
	}

	if isoPrefix.MatchString(s) {
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	if t, ok := parseRelative(s, now); ok {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, s)
}

func parseRelative(s string, now time.Time) (time.Time, bool) {
	lower := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	today := Day(now)

	switch {
	case todayRegex.MatchString(lower):
		return today, true
	case yesterdayRegex.MatchString(lower):
		return today.AddDate(0, 0, -1), true
	}

	m := relativeRegex.FindStringSubmatch(lower)
	if m == nil {
		return time.Time{}, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	switch m[2] {
	case "minute", "hour":
		return today, true
	case "day":
		return today.AddDate(0, 0, -n), true
	case "week":
		return today.AddDate(0, 0, -7*n), true
	case "month":
		// Months are approximated as 30 days.
		return today.AddDate(0, 0, -30*n), true
	}
	return time.Time{}, false
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from earlier to later, in UTC.
func DaysBetween(earlier, later time.Time) int {
	return int(Day(later).Sub(Day(earlier)).Hours() / 24)
}
