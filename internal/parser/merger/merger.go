// Package merger joins per-chunk scan results into one document-level result.
// Chunks may finish in any order, so every word's offsets are sorted after
// the union; arrival order never shows in the output.
package merger

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
)

// Merge returns the union of all partial results with each word's offsets in
// ascending order. Duplicate offsets are kept. The partials are not modified.
func Merge(partials []index.Occurrences) index.Occurrences {
	size := 0
	for _, p := range partials {
		if len(p) > size {
			size = len(p)
		}
	}
	merged := make(index.Occurrences, size)
	for _, p := range partials {
		for word, offsets := range p {
			merged[word] = append(merged[word], offsets...)
		}
	}
	for _, offsets := range merged {
		sort.Ints(offsets)
	}
	return merged
}

// Flatten converts occ into a slice ordered by word.
func Flatten(occ index.Occurrences) []index.WordOffsets {
	words := make([]index.WordOffsets, 0, len(occ))
	for word, offsets := range occ {
		words = append(words, index.WordOffsets{Word: word, Offsets: offsets})
	}
	sort.Slice(words, func(i, j int) bool {
		return words[i].Word < words[j].Word
	})
	return words
}
