package query

import "github.com/nijaru/hygrep/internal/block"

// Candidate is one block under consideration for a query's result set,
// paired with its embedding vector.
type Candidate struct {
	File      string
	Kind      block.Kind
	Name      string
	StartLine int
	EndLine   int
	Content   string
	Vector    []float32
}

// Result is a scored, ordered Candidate, shaped for output.
type Result struct {
	File      string     `json:"file"`
	Kind      block.Kind `json:"kind"`
	Name      string     `json:"name"`
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
	Score     float64    `json:"score"`
	Content   string     `json:"content,omitempty"`
}
