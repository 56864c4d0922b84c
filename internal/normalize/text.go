package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"jobmate/ghostjob-service/internal/model"
)

// MaxDescriptionRunes caps stored descriptions; longer text is truncated.
const MaxDescriptionRunes = 10000

var (
	whitespace = regexp.MustCompile(`\s+`)

	locationPatterns = []struct {
		kind model.LocationType
		re   *regexp.Regexp
	}{
		// Checked most specific first: "hybrid, partially remote" is hybrid.
		{model.LocationOnsite, regexp.MustCompile(`\b(?:onsite|on-site|in office|in-person)\b`)},
		{model.LocationHybrid, regexp.MustCompile(`\b(?:hybrid|partially remote)\b`)},
		{model.LocationRemote, regexp.MustCompile(`\b(?:remote|work from home|wfh|virtual)\b`)},
	}
)

// Clean trims s and collapses internal whitespace runs to one space.
func Clean(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Fold returns the NFKC-normalized, case-folded form of s used for every
// case-insensitive comparison. A Caser is stateful, so each call builds its own.
func Fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// Key reduces s to a grouping key: folded, punctuation turned into spaces,
// whitespace collapsed. "Acme Staffing, Inc." and "ACME  staffing inc" share
// a key.
func Key(s string) string {
	folded := Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// WordCount counts whitespace-delimited tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// ClassifyLocation derives the work arrangement from the location text,
// falling back to the description when the location says nothing.
func ClassifyLocation(location, description string) model.LocationType {
	if kind, ok := matchLocation(Fold(location)); ok {
		return kind
	}
	if kind, ok := matchLocation(Fold(description)); ok {
		return kind
	}
	return model.LocationUnknown
}

func matchLocation(text string) (model.LocationType, bool) {
	if text == "" {
		return "", false
	}
	for _, p := range locationPatterns {
		if p.re.MatchString(text) {
			return p.kind, true
		}
	}
	return "", false
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}
