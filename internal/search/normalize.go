// Package search implements the fuzzy product search used by the catalog:
// text normalization, Levenshtein-based similarity scoring and ranking.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes free text for matching: lower-case, "ё" folded to
// "е", every rune other than a Latin letter, Cyrillic letter or digit
// replaced by a space, whitespace collapsed and trimmed.
//
// Normalize is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// NFC first so that "е" followed by a combining diaeresis folds like "ё".
	// Chains are stateful, so one is built per call.
	t := transform.Chain(norm.NFC, cases.Lower(language.Und), runes.Map(foldRune))
	out, _, err := transform.String(t, text)
	if err != nil {
		out = strings.Map(foldRune, strings.ToLower(text))
	}
	return strings.Join(strings.Fields(out), " ")
}

func foldRune(r rune) rune {
	switch {
	case r == 'ё':
		return 'е'
	case keepRune(r):
		return r
	default:
		return ' '
	}
}

func keepRune(r rune) bool {
	if unicode.IsDigit(r) {
		return true
	}
	if !unicode.IsLetter(r) {
		return false
	}
	return unicode.Is(unicode.Latin, r) || unicode.Is(unicode.Cyrillic, r)
}
