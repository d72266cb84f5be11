package hygrep

import (
	"context"
	"os"

	"github.com/nijaru/hygrep/internal/block"
	"github.com/nijaru/hygrep/internal/corpusindex"
	"github.com/nijaru/hygrep/internal/embed"
	hygrepErrors "github.com/nijaru/hygrep/internal/errors"
)

// Indexer builds and maintains the on-disk corpus index for one root
// directory.
type Indexer struct {
	root       string
	embedder   embed.Embedder
	extractor  *block.Extractor
	ignoreFile string
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithIndexerEmbedder sets the embedder used to vectorize new or changed
// blocks during Build. Required.
func WithIndexerEmbedder(e embed.Embedder) IndexerOption {
	return func(i *Indexer) { i.embedder = e }
}

// WithIndexerIgnoreFile overrides the extra gitignore-syntax file consulted
// during the walk (default ".hhgignore").
func WithIndexerIgnoreFile(name string) IndexerOption {
	return func(i *Indexer) { i.ignoreFile = name }
}

// NewIndexer creates an Indexer rooted at root.
//
// Requires WithIndexerEmbedder. Returns a PATH error if root does not exist
// or is not a directory.
func NewIndexer(root string, opts ...IndexerOption) (*Indexer, error) {
	idx := &Indexer{root: root, ignoreFile: ".hhgignore"}
	for _, opt := range opts {
		opt(idx)
	}

	if idx.embedder == nil {
		return nil, hygrepErrors.ArgumentError("an embedder is required to build an index", nil)
	}
	if err := validateRoot(root); err != nil {
		return nil, err
	}

	idx.extractor = block.NewExtractor()
	return idx, nil
}

// Build walks root, reuses unchanged blocks from the previous index, embeds
// new or changed ones, and atomically commits the result.
func (i *Indexer) Build(ctx context.Context) (corpusindex.BuildStats, error) {
	_, stats, err := corpusindex.Build(ctx, i.root, i.embedder, i.extractor, corpusindex.BuildOptions{
		IgnoreFile: i.ignoreFile,
	})
	return stats, err
}

// Exists reports whether a committed index is present at root.
func (i *Indexer) Exists() bool {
	return corpusindex.Exists(i.root)
}

// Stale returns the relative paths of files whose content has changed
// since the last committed build. The index remains queryable in the
// meantime; this is informational.
func (i *Indexer) Stale(ctx context.Context, modelVersion string, dims int) ([]string, error) {
	loaded, err := corpusindex.Load(i.root, modelVersion, dims)
	if err != nil {
		return nil, err
	}
	defer loaded.Close()
	return corpusindex.StaleFiles(loaded, i.root, i.ignoreFile)
}

// Clean removes the on-disk index for root.
func (i *Indexer) Clean() error {
	return corpusindex.Clean(i.root)
}

// Close releases the Indexer's block extractor.
func (i *Indexer) Close() error {
	if i.extractor != nil {
		i.extractor.Close()
	}
	return nil
}

func validateRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return hygrepErrors.PathError("corpus root does not exist: "+root, err)
	}
	if !info.IsDir() {
		return hygrepErrors.PathError("corpus root is not a directory: "+root, nil)
	}
	return nil
}
