package swot

import (
	"strings"

	"golang.org/x/text/cases"
)

// MatchKey is the identity used to correlate free-text items across groups
// and stages: surrounding whitespace trimmed, unicode case folded.
func MatchKey(text string) string {
	// A Caser holds state, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(text))
}

// SameItem reports whether two item texts refer to the same statement.
func SameItem(a, b string) bool {
	return MatchKey(a) == MatchKey(b)
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
