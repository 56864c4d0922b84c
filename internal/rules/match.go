package rules

import (
	"strings"

	"jobmate/ghostjob-service/internal/normalize"
)

// ContainsAny returns the first term that appears (case-insensitive)
// anywhere in the combined text, and whether one did.
func ContainsAny(terms []string, text ...string) (string, bool) {
	if len(terms) == 0 {
		return "", false
	}
	combined := normalize.Fold(strings.Join(text, " "))
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(combined, normalize.Fold(term)) {
			return term, true
		}
	}
	return "", false
}

// CountDistinct returns how many different terms appear in text.
func CountDistinct(terms []string, text string) int {
	folded := normalize.Fold(text)
	n := 0
	for _, term := range terms {
		if term != "" && strings.Contains(folded, normalize.Fold(term)) {
			n++
		}
	}
	return n
}
