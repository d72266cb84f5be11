package embed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/sync/errgroup"
)

// ONNXEmbedder runs the bundled sentence-transformer model through
// onnxruntime, producing mean-pooled, L2-normalized embeddings.
type ONNXEmbedder struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	tokenizer *tokenizers.Tokenizer
	modelPath string
	version   string
}

var ortInitOnce sync.Once
var ortInitErr error

// New loads the ONNX model and tokenizer from modelDir (expected to contain
// model.onnx and tokenizer.json). ortLibPath points at the onnxruntime
// shared library; an empty string uses the runtime's platform default
// search path. numThreads <= 0 uses onnxruntime's own default.
func New(modelDir, ortLibPath string, numThreads int) (*ONNXEmbedder, error) {
	ortInitOnce.Do(func() {
		if ortLibPath != "" {
			ort.SetSharedLibraryPath(ortLibPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("embed: initialize onnxruntime: %w", ortInitErr)
	}

	modelPath := filepath.Join(modelDir, "model.onnx")
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("embed: model not found at %s: %w", modelPath, err)
	}

	tokenizerPath := filepath.Join(modelDir, "tokenizer.json")
	tok, err := tokenizers.FromFile(tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("embed: load tokenizer: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		tok.Close()
		return nil, fmt.Errorf("embed: session options: %w", err)
	}
	defer opts.Destroy()
	if numThreads > 0 {
		_ = opts.SetIntraOpNumThreads(numThreads)
	}
	_ = opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		opts,
	)
	if err != nil {
		tok.Close()
		return nil, fmt.Errorf("embed: load session: %w", err)
	}

	return &ONNXEmbedder{
		session:   session,
		tokenizer: tok,
		modelPath: modelPath,
		version:   "snowflake-arctic-embed-s-v1",
	}, nil
}

// Dimensions returns the embedding width.
func (e *ONNXEmbedder) Dimensions() int { return Dimensions }

// ModelVersion identifies the model for manifest staleness checks.
func (e *ONNXEmbedder) ModelVersion() string { return e.version }

// Close releases the tokenizer and ONNX session.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tokenizer.Close()
	return e.session.Destroy()
}

// Embed embeds a single text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in chunks of DefaultBatchSize, submitted
// concurrently via an errgroup. The ONNX session itself serialises actual
// inference calls (embedBatch holds e.mu for the duration of a Run), so
// concurrency here overlaps tokenization and tensor-building work across
// batches rather than running the model itself in parallel. An empty input
// returns an empty result without invoking the session.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	numBatches := (len(texts) + DefaultBatchSize - 1) / DefaultBatchSize
	results := make([][][]float32, numBatches)

	g, ctx := errgroup.WithContext(ctx)
	for b := 0; b < numBatches; b++ {
		b := b
		start := b * DefaultBatchSize
		end := start + DefaultBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch, err := e.embedBatch(texts[start:end])
			if err != nil {
				return fmt.Errorf("batch [%d:%d]: %w", start, end, err)
			}
			results[b] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	out := make([][]float32, 0, len(texts))
	for _, batch := range results {
		out = append(out, batch...)
	}
	return out, nil
}

// embedBatch runs a single onnxruntime session.Run call over texts, which
// must already be within DefaultBatchSize.
func (e *ONNXEmbedder) embedBatch(texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	encodings := make([]tokenizers.Encoding, len(texts))
	maxLen := 0
	for i, text := range texts {
		enc := e.tokenizer.EncodeWithOptions(text, false, tokenizers.WithReturnAttentionMask())
		if len(enc.IDs) > MaxSequenceLength {
			enc.IDs = enc.IDs[:MaxSequenceLength]
			enc.AttentionMask = enc.AttentionMask[:MaxSequenceLength]
		}
		encodings[i] = enc
		if len(enc.IDs) > maxLen {
			maxLen = len(enc.IDs)
		}
	}
	if maxLen == 0 {
		maxLen = 1
	}

	batchSize := len(texts)
	inputIDs := make([]int64, batchSize*maxLen)
	attentionMask := make([]int64, batchSize*maxLen)
	tokenTypeIDs := make([]int64, batchSize*maxLen)

	for i, enc := range encodings {
		base := i * maxLen
		for j := 0; j < maxLen; j++ {
			if j < len(enc.IDs) {
				inputIDs[base+j] = int64(enc.IDs[j])
				attentionMask[base+j] = int64(enc.AttentionMask[j])
			}
		}
	}

	shape := ort.NewShape(int64(batchSize), int64(maxLen))
	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("build input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("build attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	typeTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("build token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputShape := ort.NewShape(int64(batchSize), int64(maxLen), int64(Dimensions))
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, fmt.Errorf("build output tensor: %w", err)
	}
	defer output.Destroy()

	if err := e.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	hidden := output.GetData()
	out := make([][]float32, batchSize)
	for i := 0; i < batchSize; i++ {
		pooled := meanPool(hidden, attentionMask, i, maxLen, Dimensions)
		normalized, err := normalize(pooled)
		if err != nil {
			return nil, err
		}
		out[i] = normalized
	}
	return out, nil
}

// meanPool averages the last-hidden-state vectors for sequence i over its
// non-padding tokens, per the attention mask. This differs from CLS-token
// pooling: the bundled model (snowflake-arctic-embed-s) was trained with a
// mean-pooling head, so token 0 alone under-represents longer blocks.
func meanPool(hidden []float32, mask []int64, seqIdx, seqLen, dims int) []float32 {
	sum := make([]float32, dims)
	var count float32
	seqBase := seqIdx * seqLen * dims
	maskBase := seqIdx * seqLen

	for t := 0; t < seqLen; t++ {
		if mask[maskBase+t] == 0 {
			continue
		}
		count++
		tokenBase := seqBase + t*dims
		for d := 0; d < dims; d++ {
			sum[d] += hidden[tokenBase+d]
		}
	}
	if count == 0 {
		return sum
	}
	for d := range sum {
		sum[d] /= count
	}
	return sum
}
