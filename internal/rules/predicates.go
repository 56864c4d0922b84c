package rules

import (
	"regexp"
	"strings"

	"jobmate/ghostjob-service/internal/normalize"
)

// SuspiciousCompanyTerms mark staffing-agency style employers.
var SuspiciousCompanyTerms = []string{
	"staffing",
	"recruitment",
	"talent",
	"consulting",
	"solutions",
}

// VagueSalaryTerms are pay descriptions that avoid a number.
var VagueSalaryTerms = []string{
	"competitive",
	"negotiable",
	"commensurate",
	"attractive",
	"market rate",
	"tbd",
	"to be discussed",
}

// RedFlagTerms are phrases typical of low-effort or bait postings.
var RedFlagTerms = []string{
	"urgently hiring",
	"immediate start",
	"no experience required",
	"work from home",
	"easy money",
	"guaranteed income",
	"apply now",
	"great opportunity",
	"competitive salary",
	"fast-paced environment",
	"dynamic team",
	"exciting opportunity",
	"join our team",
}

// GenericTitles are matched against the whole normalized title.
var GenericTitles = []string{
	"software developer",
	"software engineer",
	"data analyst",
	"project manager",
	"consultant",
	"specialist",
	"coordinator",
	"representative",
	"associate",
	"manager",
	"director",
}

var vagueLocationPhrases = []string{
	"multiple locations",
	"various locations",
	"remote",
	"anywhere",
	"flexible",
	"nationwide",
	"global",
	"worldwide",
}

// Words that carry no place information once the vague phrase is gone.
var locationFiller = map[string]bool{
	"or": true, "and": true, "in": true, "from": true, "the": true,
	"first": true, "only": true, "work": true, "based": true, "100": true,
}

const minLocationLength = 3

var (
	// $80k-$100k, 50 000 - 60 000 EUR, USD 90,000 to 120,000, 40-50k
	salaryRangePatterns = []*regexp.Regexp{
		regexp.MustCompile(`[$€£]\s?\d[\d,. ]*k?\s*(?:-|–|to)\s*[$€£]?\s?\d[\d,. ]*k?`),
		regexp.MustCompile(`(?i)\b(?:usd|eur|gbp|chf|sek|nok|dkk)\s?\d[\d,. ]*k?\s*(?:-|–|to)\s*\d[\d,. ]*k?`),
		regexp.MustCompile(`(?i)\d[\d,. ]*k?\s*(?:-|–|to)\s*\d[\d,. ]*k?\s?(?:usd|eur|gbp|chf|sek|nok|dkk|€|\$|£)`),
		regexp.MustCompile(`(?i)\b\d{2,3}\s?k\s*(?:-|–|to)\s*\d{2,3}\s?k\b`),
	}
	mentionsSalary = regexp.MustCompile(`(?i)\b(?:salary|salaries|compensation|pay|wage|wages|remuneration)\b|[$€£]`)
	doeTerm        = regexp.MustCompile(`(?i)\bdoe\b`)
	genderTag      = regexp.MustCompile(`(?i)\(\s*[mfwd]\s*/\s*[mfwd]\s*/\s*[mfwd]\s*\)|\b[mfwd]/[mfwd]/[mfwd]\b`)
)

var titleEdgeWords = map[string]bool{
	"position": true, "vacancy": true, "role": true, "job": true,
}

// IsSuspiciousCompany returns the first suspicious term found in the
// company or source_company name.
func IsSuspiciousCompany(company, sourceCompany string) (string, bool) {
	return ContainsAny(SuspiciousCompanyTerms, company, sourceCompany)
}

// HasSalaryRange reports a structured salary or an explicit numeric range in
// the description.
func HasSalaryRange(description string, salaryMin, salaryMax *float64) bool {
	if salaryMin != nil || salaryMax != nil {
		return true
	}
	for _, re := range salaryRangePatterns {
		if re.MatchString(description) {
			return true
		}
	}
	return false
}

// HasVagueSalary reports pay described without a range. With strict set, a
// description that never mentions pay at all also counts as vague.
func HasVagueSalary(description string, salaryMin, salaryMax *float64, strict bool) bool {
	if HasSalaryRange(description, salaryMin, salaryMax) {
		return false
	}
	if _, ok := ContainsAny(VagueSalaryTerms, description); ok {
		return true
	}
	if doeTerm.MatchString(description) {
		return true
	}
	return strict && !mentionsSalary.MatchString(description)
}

// HasRedFlags returns the number of distinct red-flag phrases in description
// and whether it reaches the trigger count of two.
func HasRedFlags(description string) (int, bool) {
	n := CountDistinct(RedFlagTerms, description)
	return n, n >= 2
}

// IsGenericTitle reports a title that, stripped of gender tags and filler
// words, is exactly one of GenericTitles.
func IsGenericTitle(title string) bool {
	words := strings.Fields(normalize.Key(genderTag.ReplaceAllString(title, " ")))
	for len(words) > 0 && titleEdgeWords[words[0]] {
		words = words[1:]
	}
	for len(words) > 0 && titleEdgeWords[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	if len(words) == 0 {
		return false
	}
	t := strings.Join(words, " ")
	for _, g := range GenericTitles {
		if t == g {
			return true
		}
	}
	return false
}

// IsVagueLocation reports a location that names no concrete place: empty,
// shorter than three characters, or made only of phrases like "Remote" or
// "Multiple Locations".
func IsVagueLocation(location string) bool {
	loc := strings.TrimSpace(location)
	if len([]rune(loc)) < minLocationLength {
		return true
	}
	key := " " + normalize.Key(loc) + " "
	for _, phrase := range vagueLocationPhrases {
		for strings.Contains(key, " "+phrase+" ") {
			key = strings.ReplaceAll(key, " "+phrase+" ", " ")
		}
	}
	for _, w := range strings.Fields(key) {
		if !locationFiller[w] {
			return false
		}
	}
	return true
}
