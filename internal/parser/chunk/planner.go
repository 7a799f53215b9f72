// Package chunk splits normalized text into contiguous spans that can be
// scanned independently. A cut never falls strictly between two letters, so
// every word belongs to exactly one chunk.
package chunk

import (
	"runtime"
	"unicode"
)

// DefaultMinChunkSize is the smallest span, in characters, worth handing to
// its own worker.
const DefaultMinChunkSize = 500

// Chunk is the half-open range [Start, End) of the normalized text.
type Chunk struct {
	Start int
	End   int
}

// Base is the offset added to positions local to the chunk.
func (c Chunk) Base() int {
	return c.Start
}

// Len returns the number of characters in the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Planner decides how many chunks to create and where to cut them.
type Planner struct {
	MinChunkSize int
	MaxWorkers   int
}

// NewPlanner returns a Planner, substituting defaults for non-positive values.
func NewPlanner(minChunkSize, maxWorkers int) Planner {
	if minChunkSize <= 0 {
		minChunkSize = DefaultMinChunkSize
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return Planner{MinChunkSize: minChunkSize, MaxWorkers: maxWorkers}
}

// Count returns the target number of chunks for text of length n:
// min(MaxWorkers, max(1, n/MinChunkSize)).
func (p Planner) Count(n int) int {
	minSize := p.MinChunkSize
	if minSize <= 0 {
		minSize = DefaultMinChunkSize
	}
	target := n / minSize
	if target < 1 {
		target = 1
	}
	if p.MaxWorkers > 0 && target > p.MaxWorkers {
		target = p.MaxWorkers
	}
	return target
}

// Plan returns ordered, disjoint chunks covering text exactly once. The
// result may hold fewer chunks than Count when several nominal cuts fall in
// the same long word.
func (p Planner) Plan(text []rune) []Chunk {
	n := len(text)
	target := p.Count(n)
	if target == 1 {
		return []Chunk{{Start: 0, End: n}}
	}

	chunks := make([]Chunk, 0, target)
	prev := 0
	for i := 1; i < target; i++ {
		cut := adjustCut(text, i*n/target, prev)
		if cut <= prev || cut >= n {
			continue
		}
		chunks = append(chunks, Chunk{Start: prev, End: cut})
		prev = cut
	}
	return append(chunks, Chunk{Start: prev, End: n})
}

// adjustCut moves pos to the nearest position that does not split a letter
// run. The backward candidate is only used while it stays after floor;
// otherwise the cut is pushed forward to the end of the run.
func adjustCut(text []rune, pos, floor int) int {
	if isCut(text, pos) {
		return pos
	}
	forward := pos + 1
	for !isCut(text, forward) {
		forward++
	}
	backward := pos - 1
	for backward > floor && !isCut(text, backward) {
		backward--
	}
	if backward > floor && pos-backward < forward-pos {
		return backward
	}
	return forward
}

// isCut reports whether a chunk boundary at pos keeps every word whole.
func isCut(text []rune, pos int) bool {
	if pos <= 0 || pos >= len(text) {
		return true
	}
	return !unicode.IsLetter(text[pos-1]) || !unicode.IsLetter(text[pos])
}
