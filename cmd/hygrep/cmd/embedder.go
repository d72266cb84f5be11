package cmd

import (
	"github.com/nijaru/hygrep/internal/config"
	"github.com/nijaru/hygrep/internal/embed"
	hygrepErrors "github.com/nijaru/hygrep/internal/errors"
)

// newEmbedder constructs the build-batch-cached ONNX embedder from cfg,
// wrapping any construction failure as a MODEL error (model or tokenizer
// artefacts missing, most commonly because 'hygrep model install' hasn't
// been run yet).
func newEmbedder(cfg *config.Config) (embed.Embedder, error) {
	emb, err := embed.NewWithCache(cfg.ModelDir, "", cfg.ResolvedThreads(), 0)
	if err != nil {
		return nil, hygrepErrors.ModelMissingError("embedding model unavailable; run 'hygrep model install'", err)
	}
	return emb, nil
}
