package hygrep

import (
	"context"
	"log/slog"

	"github.com/nijaru/hygrep/internal/block"
	"github.com/nijaru/hygrep/internal/corpusindex"
	"github.com/nijaru/hygrep/internal/embed"
	hygrepErrors "github.com/nijaru/hygrep/internal/errors"
	"github.com/nijaru/hygrep/internal/query"
	"github.com/nijaru/hygrep/internal/scanner"
)

// Searcher runs hybrid recall-then-rerank search over one corpus root.
type Searcher struct {
	root       string
	embedder   embed.Embedder
	extractor  *block.Extractor
	reranker   *query.Reranker
	ignoreFile string
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithSearcherEmbedder sets the embedder used for query and (in ephemeral
// mode) block embedding. Required.
func WithSearcherEmbedder(e embed.Embedder) SearcherOption {
	return func(s *Searcher) { s.embedder = e }
}

// WithSearcherIgnoreFile overrides the extra gitignore-syntax file
// consulted by ephemeral-mode scans (default ".hhgignore").
func WithSearcherIgnoreFile(name string) SearcherOption {
	return func(s *Searcher) { s.ignoreFile = name }
}

// NewSearcher creates a Searcher rooted at root.
//
// Requires WithSearcherEmbedder. Returns a PATH error if root does not
// exist or is not a directory.
func NewSearcher(root string, opts ...SearcherOption) (*Searcher, error) {
	s := &Searcher{root: root, ignoreFile: ".hhgignore"}
	for _, opt := range opts {
		opt(s)
	}

	if s.embedder == nil {
		return nil, hygrepErrors.ArgumentError("an embedder is required to search", nil)
	}
	if err := validateRoot(root); err != nil {
		return nil, err
	}

	s.extractor = block.NewExtractor()
	s.reranker = query.NewReranker(s.embedder)
	return s, nil
}

// SearchOptions configures a single Search call.
type SearchOptions struct {
	TopK          int
	MaxCandidates int
	Filter        query.Filter
	Compact       bool

	// Fast forces ephemeral-mode search (scan + on-the-fly embed) even if a
	// committed index exists, trading recall/precision for freshness.
	Fast bool

	// ExcludeGlobs and TypeFilter additionally narrow the ephemeral-mode
	// scan's candidate file set; they have no effect in indexed mode
	// (Filter.Extensions/ExcludeGlobs apply there instead, post-extraction).
	ExcludeGlobs []string
	TypeFilter   []string
}

// Search runs query against root. It prefers a committed index compatible
// with the current embedder's model version; otherwise (or when
// opts.Fast is set) it scans the tree and embeds candidates ephemerally,
// with no persistence.
func (s *Searcher) Search(ctx context.Context, q string, opts SearchOptions) ([]query.Result, error) {
	queryOpts := query.Options{
		Query:         q,
		TopK:          opts.TopK,
		MaxCandidates: opts.MaxCandidates,
		Filter:        opts.Filter,
		Compact:       opts.Compact,
	}

	if !opts.Fast && corpusindex.Exists(s.root) {
		idx, err := corpusindex.Load(s.root, s.embedder.ModelVersion(), s.embedder.Dimensions())
		if err == nil {
			defer idx.Close()
			return s.reranker.Query(ctx, idx, s.root, queryOpts)
		}
		// An incompatible or corrupt index falls back to ephemeral mode
		// rather than failing the search outright.
	}

	result, err := scanner.Scan(ctx, scanner.Options{
		Root:         s.root,
		Query:        q,
		TypeFilter:   opts.TypeFilter,
		ExcludeGlobs: opts.ExcludeGlobs,
		IgnoreFile:   s.ignoreFile,
	})
	if err != nil {
		return nil, err
	}
	if result.SkippedErrors > 0 {
		slog.Warn("scan skipped unreadable files",
			slog.String("root", s.root),
			slog.Int("skipped", result.SkippedErrors),
			slog.String("warning", result.Warning))
	}

	contents := make(map[string]string, len(result.Candidates))
	for path, c := range result.Candidates {
		contents[path] = c.Content
	}

	return s.reranker.QueryEphemeral(ctx, contents, s.extractor, queryOpts)
}

// Close releases the Searcher's block extractor.
func (s *Searcher) Close() error {
	if s.extractor != nil {
		s.extractor.Close()
	}
	return nil
}
