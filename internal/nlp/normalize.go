// Package nlp turns Vietnamese free text into an intent and the slots of a
// calendar event.
package nlp

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize composes the text to NFC and collapses runs of whitespace.
// Input typed with decomposed tone marks would otherwise miss every phrase
// table.
func Normalize(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

// Fold normalizes and lower-cases text with Vietnamese casing rules.
func Fold(text string) string {
	// cases.Caser is stateful, so one per call.
	return cases.Lower(language.Vietnamese).String(Normalize(text))
}

// hasWordPrefix reports whether words starts with all of prefix, compared
// case-insensitively.
func hasWordPrefix(words, prefix []string) bool {
	if len(prefix) == 0 || len(prefix) > len(words) {
		return false
	}
	for i, p := range prefix {
		if !strings.EqualFold(words[i], p) {
			return false
		}
	}
	return true
}

func hasWordSuffix(words, suffix []string) bool {
	if len(suffix) == 0 || len(suffix) > len(words) {
		return false
	}
	off := len(words) - len(suffix)
	for i, s := range suffix {
		if !strings.EqualFold(words[off+i], s) {
			return false
		}
	}
	return true
}
