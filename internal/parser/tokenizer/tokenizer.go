// Package tokenizer extracts words from normalized text. A word is a maximal
// run of letters; digits, punctuation and whitespace all end a run. Each word
// is recorded at the global offset of its first letter.
package tokenizer

import (
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/chunk"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
)

// Scan returns the words that start inside c, each mapped to its ascending
// offsets in text. It reads text only and is safe to run concurrently with
// other scans of the same slice.
func Scan(text []rune, c chunk.Chunk) index.Occurrences {
	occ := make(index.Occurrences)
	if c.Start < 0 {
		c.Start = 0
	}
	if c.End > len(text) {
		c.End = len(text)
	}
	span := text[c.Start:c.End]
	wordStart := -1
	for i, r := range span {
		if unicode.IsLetter(r) {
			if wordStart == -1 {
				wordStart = i
			}
			continue
		}
		if wordStart != -1 {
			occ.Add(string(span[wordStart:i]), c.Base()+wordStart)
			wordStart = -1
		}
	}
	// a run reaching the end of the slice is still a word
	if wordStart != -1 {
		occ.Add(string(span[wordStart:]), c.Base()+wordStart)
	}
	return occ
}

// ScanAll scans the whole text as one chunk. It is the sequential baseline
// the parallel parse must reproduce.
func ScanAll(text []rune) index.Occurrences {
	return Scan(text, chunk.Chunk{Start: 0, End: len(text)})
}

// FirstWord returns the first letter run of text, or false if there is none.
// Lookups use it so "Hello!" and " hello" find the same word.
func FirstWord(text []rune) (string, bool) {
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			return string(text[start:i]), true
		}
	}
	if start == -1 {
		return "", false
	}
	return string(text[start:]), true
}
