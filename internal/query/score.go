package query

import (
	"container/heap"
	"math"
)

// scored pairs a Candidate with its cosine similarity to the query vector.
type scored struct {
	candidate Candidate
	score     float64
}

// dot computes the dot product of two equal-length vectors. Both the query
// and every candidate vector are unit-norm (internal/embed.normalize
// guarantees this), so the dot product equals cosine similarity directly —
// no separate magnitude division is needed.
func dot(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// less implements the total order spec.md names: higher score first, then
// lower start_line, then lexicographically smaller file.
func less(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.candidate.StartLine != b.candidate.StartLine {
		return a.candidate.StartLine < b.candidate.StartLine
	}
	return a.candidate.File < b.candidate.File
}

// topKHeap is a bounded min-heap (by the total order's worst-is-smallest
// orientation) used to keep only the k best-scored candidates while
// scanning a possibly much larger candidate set in one pass.
type topKHeap []scored

func (h topKHeap) Len() int { return len(h) }

// Less inverts `less` so the heap's root (index 0) is the current worst of
// the retained top-k, making it the one to evict when a better one arrives.
func (h topKHeap) Less(i, j int) bool { return less(h[j], h[i]) }
func (h topKHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *topKHeap) Push(x any) { *h = append(*h, x.(scored)) }
func (h *topKHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// topK scores every candidate against query and returns the k best in
// ascending-rank order (best first), per the total order in `less`.
func topK(candidates []Candidate, query []float32, k int) []scored {
	if k <= 0 {
		return nil
	}

	h := make(topKHeap, 0, k)
	heap.Init(&h)

	for _, c := range candidates {
		s := scored{candidate: c, score: roundScore(dot(c.Vector, query))}
		if h.Len() < k {
			heap.Push(&h, s)
			continue
		}
		if less(s, h[0]) {
			heap.Pop(&h)
			heap.Push(&h, s)
		}
	}

	out := make([]scored, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(scored)
	}
	return out
}

// roundScore rounds to 4 decimal places, per spec.md's output shaping step.
func roundScore(v float64) float64 {
	return math.Round(v*10000) / 10000
}
