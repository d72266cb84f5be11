// Package hygrep is the public API wiring the scan, extract, embed, index,
// and rerank stages into an Indexer and a Searcher.
//
// # Usage
//
// Build (or refresh) a corpus index:
//
//	idx, err := hygrep.NewIndexer(root, hygrep.WithIndexerEmbedder(emb))
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//	stats, err := idx.Build(ctx)
//
// Search it (falling back to an ephemeral scan-and-rerank when no index
// exists):
//
//	s, err := hygrep.NewSearcher(root, hygrep.WithSearcherEmbedder(emb))
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	results, err := s.Search(ctx, "parse config file", hygrep.SearchOptions{TopK: 10})
//
// # Thread Safety
//
// Indexer and Searcher are each safe for concurrent use by multiple
// goroutines once constructed.
package hygrep
