// Package index holds the value types that flow through the parse pipeline:
// documents in, per-word occurrence lists in the middle, index entries out.
package index

// Document is one unit of parse work. Content is never modified once the
// document is accepted.
type Document struct {
	ID      string `json:"document_id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// Occurrences maps a normalized word to the offsets at which it starts.
type Occurrences map[string][]int

// Add records an occurrence of word at offset.
func (o Occurrences) Add(word string, offset int) {
	o[word] = append(o[word], offset)
}

// Count returns the total number of recorded occurrences.
func (o Occurrences) Count() int {
	n := 0
	for _, offsets := range o {
		n += len(offsets)
	}
	return n
}

// WordOffsets is one word of a finished parse with ascending offsets.
type WordOffsets struct {
	Word    string `json:"word"`
	Offsets []int  `json:"offsets"`
}

// Entry is the record handed to the Document Store: one per distinct word per
// document, offsets serialized as a JSON array such as "[0,5,10]".
type Entry struct {
	Word       string `json:"word"`
	DocumentID string `json:"document_id"`
	Offsets    string `json:"offsets"`
}
