package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nijaru/hygrep/internal/query"
	"github.com/nijaru/hygrep/pkg/hygrep"
)

// searchOptions holds the root command's search-related flags.
type searchOptions struct {
	limit         int
	maxCandidates int
	jsonOutput    bool
	compact       bool
	types         []string
	exclude       []string
	filesOnly     bool
	fast          bool
	quiet         bool
	threshold     float64
}

func bindSearchFlags(cmd *cobra.Command, opts *searchOptions) {
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().IntVar(&opts.maxCandidates, "max-candidates", 0, "Maximum candidates considered before reranking (0 uses the config default)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "Omit block content from output")
	cmd.Flags().StringSliceVarP(&opts.types, "type", "t", nil, "Restrict to file extensions (repeatable, e.g. -t .go -t .py)")
	cmd.Flags().StringArrayVar(&opts.exclude, "exclude", nil, "Exclude files matching a glob (repeatable)")
	cmd.Flags().BoolVarP(&opts.filesOnly, "files-with-matches", "l", false, "Print only matching file paths")
	cmd.Flags().BoolVar(&opts.fast, "fast", false, "Skip the persisted index; scan and embed ephemerally")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress output; only set the exit code")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Minimum score required to keep a result")
}

func runSearch(cmd *cobra.Command, queryText string, path string, opts searchOptions) error {
	wantJSONError = opts.jsonOutput

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer emb.Close()

	s, err := hygrep.NewSearcher(path,
		hygrep.WithSearcherEmbedder(emb),
		hygrep.WithSearcherIgnoreFile(cfg.IgnoreFile),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	extensions := normalizeExtensions(opts.types)

	maxCandidates := cfg.MaxCandidates
	if opts.maxCandidates > 0 {
		maxCandidates = opts.maxCandidates
	}

	results, err := s.Search(cmd.Context(), queryText, hygrep.SearchOptions{
		TopK:          opts.limit,
		MaxCandidates: maxCandidates,
		Compact:       opts.compact,
		Fast:          opts.fast,
		ExcludeGlobs:  opts.exclude,
		TypeFilter:    extensions,
		Filter:        query.Filter{Extensions: extensions, ExcludeGlobs: opts.exclude},
	})
	if err != nil {
		return err
	}

	if opts.threshold > 0 {
		results = filterByThreshold(results, opts.threshold)
	}

	if len(results) == 0 {
		exitCode = 1
		return nil
	}
	exitCode = 0

	if opts.quiet {
		return nil
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if opts.filesOnly {
		seen := make(map[string]bool, len(results))
		for _, r := range results {
			if seen[r.File] {
				continue
			}
			seen[r.File] = true
			fmt.Fprintln(out, r.File)
		}
		return nil
	}

	for _, r := range results {
		fmt.Fprintf(out, "%s:%d-%d  %s %s  [%.4f]\n", r.File, r.StartLine, r.EndLine, r.Kind, r.Name, r.Score)
		if r.Content != "" {
			fmt.Fprintln(out, indent(r.Content))
		}
	}
	return nil
}

func normalizeExtensions(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	out := make([]string, len(types))
	for i, t := range types {
		if strings.HasPrefix(t, ".") {
			out[i] = t
		} else {
			out[i] = "." + t
		}
	}
	return out
}

func filterByThreshold(results []query.Result, threshold float64) []query.Result {
	out := results[:0:0]
	for _, r := range results {
		if r.Score >= threshold {
			out = append(out, r)
		}
	}
	return out
}

func indent(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}
