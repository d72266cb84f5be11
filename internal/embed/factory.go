package embed

// NewWithCache constructs the ONNX embedder and wraps it with a build-batch
// content cache. modelDir holds model.onnx + tokenizer.json; ortLibPath may
// be empty to use onnxruntime's platform default search path; cacheSize <= 0
// uses DefaultEmbeddingCacheSize.
func NewWithCache(modelDir, ortLibPath string, numThreads, cacheSize int) (Embedder, error) {
	inner, err := New(modelDir, ortLibPath, numThreads)
	if err != nil {
		return nil, err
	}
	return NewCachedEmbedder(inner, cacheSize), nil
}
