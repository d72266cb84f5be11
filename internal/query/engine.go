// Package query implements the rerank phase: turning a query and a
// candidate set (either a loaded corpus index, or blocks extracted
// on the fly from a scan) into a scored, filtered, ordered result list.
package query

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nijaru/hygrep/internal/block"
	"github.com/nijaru/hygrep/internal/corpusindex"
	"github.com/nijaru/hygrep/internal/embed"
)

// DefaultMaxCandidates bounds the candidate set scored per query when the
// caller doesn't specify one.
const DefaultMaxCandidates = 100

// Options configures a single Query/QueryEphemeral call.
type Options struct {
	Query         string
	TopK          int
	MaxCandidates int
	Filter        Filter
	Compact       bool
}

func (o Options) maxCandidates() int {
	if o.MaxCandidates > 0 {
		return o.MaxCandidates
	}
	return DefaultMaxCandidates
}

func (o Options) topK() int {
	if o.TopK > 0 {
		return o.TopK
	}
	return 10
}

// Reranker embeds queries (through a small process-local cache) and scores
// candidate blocks against them.
type Reranker struct {
	embedder embed.Embedder
	cache    *queryCache
}

// NewReranker builds a Reranker over emb. One Reranker's cache is scoped to
// the process that owns it; nothing persists it across runs.
func NewReranker(emb embed.Embedder) *Reranker {
	return &Reranker{embedder: emb, cache: newQueryCache()}
}

// embedQuery returns query's embedding, serving from the cache on repeat
// queries within the same process.
func (r *Reranker) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if v, ok := r.cache.get(query); ok {
		return v, nil
	}
	v, err := r.embedder.Embed(ctx, embed.QueryPrefix+query)
	if err != nil {
		return nil, err
	}
	r.cache.put(query, v)
	return v, nil
}

// Query runs indexed-mode retrieval: every block already embedded in idx is
// a candidate. root resolves each candidate's relative File path back to a
// file on disk, since blocks.json deliberately stores only a content_sha,
// not the content itself (spec's on-disk Index format).
func (r *Reranker) Query(ctx context.Context, idx *corpusindex.Index, root string, opts Options) ([]Result, error) {
	candidates := make([]Candidate, 0, idx.Len())
	for i, b := range idx.Blocks {
		candidates = append(candidates, Candidate{
			File:      b.File,
			Kind:      b.Kind,
			Name:      b.Name,
			StartLine: b.StartLine,
			EndLine:   b.EndLine,
			Vector:    idx.Row(i),
		})
	}

	results, err := r.rank(ctx, candidates, opts)
	if err != nil {
		return nil, err
	}
	if !opts.Compact {
		for i := range results {
			if content, ok := readBlockContent(root, results[i].File, results[i].StartLine, results[i].EndLine); ok {
				results[i].Content = content
			}
		}
	}
	return results, nil
}

// readBlockContent re-reads the line range [startLine, endLine] (1-based,
// inclusive) of file, relative to root, applying the same MaxBlockChars
// bound a freshly extracted Block would have. Returns ok=false if the file
// is gone or the range no longer fits it — the index is stale in that case
// and StaleFiles already reports it separately.
func readBlockContent(root, file string, startLine, endLine int) (string, bool) {
	data, err := os.ReadFile(filepath.Join(root, file))
	if err != nil {
		return "", false
	}
	lines := strings.Split(string(data), "\n")
	if startLine < 1 || startLine > endLine || endLine > len(lines) {
		return "", false
	}
	content := strings.Join(lines[startLine-1:endLine], "\n") + "\n"
	content, _ = block.Truncate(content)
	return content, true
}

// QueryEphemeral runs ephemeral-mode retrieval: contents is a path→content
// map (typically a Scanner result), extracted and embedded on the fly with
// no persistence.
func (r *Reranker) QueryEphemeral(ctx context.Context, contents map[string]string, extractor *block.Extractor, opts Options) ([]Result, error) {
	var blocks []block.Block
	var texts []string

	paths := make([]string, 0, len(contents))
	for p := range contents {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		content := contents[path]
		lang := block.LanguageForExtension(filepath.Ext(path))
		extracted, err := extractor.Extract(path, []byte(content), lang)
		if err != nil {
			continue
		}
		for _, b := range extracted {
			blocks = append(blocks, b)
			texts = append(texts, b.Content)
		}
	}

	if len(blocks) == 0 {
		return nil, nil
	}

	if len(blocks) > opts.maxCandidates() {
		blocks = blocks[:opts.maxCandidates()]
		texts = texts[:opts.maxCandidates()]
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, len(blocks))
	for i, b := range blocks {
		candidates[i] = Candidate{
			File:      b.File,
			Kind:      b.Kind,
			Name:      b.Name,
			StartLine: b.StartLine,
			EndLine:   b.EndLine,
			Content:   b.Content,
			Vector:    vectors[i],
		}
	}

	return r.rank(ctx, candidates, opts)
}

// rank applies filtering, embeds the query, scores, and shapes the result.
func (r *Reranker) rank(ctx context.Context, candidates []Candidate, opts Options) ([]Result, error) {
	candidates = opts.Filter.apply(candidates)
	if len(candidates) > opts.maxCandidates() {
		candidates = candidates[:opts.maxCandidates()]
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	queryVec, err := r.embedQuery(ctx, opts.Query)
	if err != nil {
		return nil, err
	}

	best := topK(candidates, queryVec, opts.topK())

	results := make([]Result, len(best))
	for i, s := range best {
		results[i] = Result{
			File:      s.candidate.File,
			Kind:      s.candidate.Kind,
			Name:      s.candidate.Name,
			StartLine: s.candidate.StartLine,
			EndLine:   s.candidate.EndLine,
			Score:     s.score,
		}
		if !opts.Compact {
			results[i].Content = s.candidate.Content
		}
	}
	return results, nil
}
