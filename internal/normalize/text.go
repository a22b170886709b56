package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Fold trims s, case-folds it and collapses internal whitespace.
func Fold(s string) string {
	// Casers keep state between calls, so one per call.
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}

// StripPunct replaces punctuation and symbols with spaces and returns the
// folded result, e.g. "A-Data (Taiwan)" -> "a data taiwan".
func StripPunct(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, s)
	return Fold(s)
}

// Tokens splits the punctuation-stripped form of s into words.
func Tokens(s string) []string {
	return strings.Fields(StripPunct(s))
}
