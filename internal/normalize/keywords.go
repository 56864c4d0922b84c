package normalize

import (
	"regexp"
	"sort"
)

// TechnicalKeywords is the fixed vocabulary counted into keyword_count.
var TechnicalKeywords = []string{
	"python", "java", "javascript", "typescript", "c++", "c#", "go", "rust", "scala",
	"sql", "postgresql", "mysql", "mongodb", "redis", "elasticsearch",
	"react", "angular", "vue", "node.js", "express", "django", "flask", "spring",
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform", "jenkins",
	"machine learning", "ai", "tensorflow", "pytorch", "scikit-learn",
	"spark", "hadoop", "kafka", "airflow", "tableau", "powerbi", "looker",
	"git", "linux", "agile", "scrum", "devops", "ci/cd",
}

type keywordMatcher struct {
	term string
	re   *regexp.Regexp
}

// Terms like "c++" and "node.js" end in punctuation, so \b cannot delimit
// them; a match must instead not touch a letter or digit on either side.
var keywordMatchers = func() []keywordMatcher {
	ms := make([]keywordMatcher, 0, len(TechnicalKeywords))
	for _, term := range TechnicalKeywords {
		ms = append(ms, keywordMatcher{
			term: term,
			re:   regexp.MustCompile(`(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(term) + `(?:$|[^\p{L}\p{N}])`),
		})
	}
	return ms
}()

// ExtractKeywords returns the vocabulary terms found in text, case-
// insensitively, each at most once, sorted.
func ExtractKeywords(text string) []string {
	if text == "" {
		return []string{}
	}
	folded := Fold(text)

	found := make([]string, 0, 8)
	seen := make(map[string]bool, 8)
	for _, m := range keywordMatchers {
		if seen[m.term] {
			continue
		}
		if m.re.MatchString(folded) {
			seen[m.term] = true
			found = append(found, m.term)
		}
	}
	sort.Strings(found)
	return found
}
