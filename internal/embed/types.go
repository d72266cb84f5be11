package embed

import (
	"context"
	"fmt"
	"math"
)

// Dimensions is the embedding width produced by the bundled
// snowflake-arctic-embed-s ONNX model. Every vector in a CorpusIndex is
// exactly this wide; a model swap that changes it invalidates every
// existing index.
const Dimensions = 384

// MaxSequenceLength is the per-text token budget. embedBatch cuts each
// encoding's token IDs and attention mask down to this length.
const MaxSequenceLength = 512

// DefaultBatchSize is the number of texts embedded per ONNX session.Run call
// during a build.
const DefaultBatchSize = 64

// QueryPrefix is prepended to search queries (but never to indexed block
// content) before embedding, matching the asymmetric instruction-tuning the
// bundled model was trained with.
const QueryPrefix = "Represent this sentence for searching relevant passages: "

// normTolerance bounds how far a normalized vector's L2 norm may drift from
// 1.0 before it's treated as a modeling bug rather than float rounding.
const normTolerance = 0.01

// Embedder turns text into normalized embedding vectors.
type Embedder interface {
	// Embed embeds a single piece of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds multiple texts in one or more model invocations. An
	// empty input returns an empty, non-nil result without touching the
	// underlying session.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the width of vectors this embedder produces.
	Dimensions() int

	// ModelVersion identifies the model + tokenizer pair, recorded in a
	// CorpusIndex manifest so a stale index can be detected on load.
	ModelVersion() string

	// Close releases the ONNX session and tokenizer.
	Close() error
}

// normalize scales v to unit L2 length and asserts the result landed within
// normTolerance of 1.0. A vector this far from unit length after deliberate
// normalization indicates a broken model or pooling bug, not a legitimate
// embedding, so callers should treat the error as fatal to the build.
func normalize(v []float32) ([]float32, error) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return nil, fmt.Errorf("embed: zero-magnitude vector cannot be normalized")
	}

	out := make([]float32, len(v))
	var check float64
	for i, val := range v {
		n := float32(float64(val) / magnitude)
		out[i] = n
		check += float64(n) * float64(n)
	}

	norm := math.Sqrt(check)
	if norm < 1.0-normTolerance || norm > 1.0+normTolerance {
		return nil, fmt.Errorf("embed: normalized vector norm %.4f outside [%.2f, %.2f]", norm, 1.0-normTolerance, 1.0+normTolerance)
	}
	return out, nil
}
