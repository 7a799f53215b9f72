// Package normalizer canonicalizes raw document text before scanning. It
// folds case and strips diacritics so that "Élan", "elan" and "ÉLAN" all scan
// to the same word. All downstream offsets refer to the normalized text.
package normalizer

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical form of raw as runes. It never fails: if the
// accent-stripping transform reports an error the case-folded text is used
// unchanged.
func Normalize(raw string) []rune {
	return []rune(NormalizeString(raw))
}

// NormalizeString is Normalize returning a string. It is also used to
// canonicalize lookup terms so they match indexed words.
func NormalizeString(raw string) string {
	if raw == "" {
		return ""
	}
	// Casers and transform chains keep internal state; build them per call.
	folded := cases.Fold().String(raw)
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripper, folded)
	if err != nil {
		return folded
	}
	return stripped
}
