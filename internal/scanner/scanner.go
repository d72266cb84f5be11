// Package scanner implements the recall phase: a fast, parallel,
// case-insensitive regex/literal scan of a corpus that returns the set of
// candidate files which might contain relevant content.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nijaru/hygrep/internal/walker"
)

// MaxCandidateBytes caps the text retained per candidate file.
const MaxCandidateBytes = 2 * 1024 * 1024

// errorThreshold is the number of unreadable files above which a scan
// surfaces a warning (but never fails).
const errorThreshold = 16

// regexMetachars are the characters whose presence means a query is
// already a regex and should not have its spaces rewritten.
const regexMetachars = `*()[]\|+?^$`

// Candidate is a file that matched the scan, with its (possibly truncated)
// text content.
type Candidate struct {
	Path      string
	Content   string
	Truncated bool
}

// Options configures a scan.
type Options struct {
	// Root is the corpus root directory.
	Root string
	// Query is the raw search query; TransformQuery is applied internally.
	Query string
	// TypeFilter restricts matches to files with one of these extensions
	// (each including the leading dot, e.g. ".go"). Empty means all types.
	TypeFilter []string
	// ExcludeGlobs additionally excludes files matching any of these
	// filepath.Match-style globs, evaluated against the relative path.
	ExcludeGlobs []string
	// IgnoreFile is an extra gitignore-syntax file consulted by the walker
	// (e.g. ".hhgignore").
	IgnoreFile string
	// Workers bounds the scan worker pool (via errgroup.SetLimit); 0 means
	// runtime.NumCPU().
	Workers int
}

// Result is the outcome of a scan.
type Result struct {
	// Candidates maps path to its content, in sorted path order when
	// iterated via Paths().
	Candidates map[string]Candidate
	// SkippedErrors counts files that could not be read.
	SkippedErrors int
	// Warning is set when SkippedErrors exceeds errorThreshold.
	Warning string
}

// Paths returns the candidate paths in deterministic sorted order.
func (r *Result) Paths() []string {
	paths := make([]string, 0, len(r.Candidates))
	for p := range r.Candidates {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// TransformQuery rewrites space-separated bare words into an alternation
// to broaden recall, unless the query already looks like a regex.
func TransformQuery(query string) string {
	if strings.ContainsAny(query, regexMetachars) {
		return query
	}
	if !strings.Contains(query, " ") {
		return query
	}
	fields := strings.Fields(query)
	return strings.Join(fields, "|")
}

// Scan walks opts.Root, honouring ignore rules, and returns the set of
// files whose content matches the (transformed) query under a
// case-insensitive regex.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	pattern := TransformQuery(opts.Query)
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid query pattern: %w", err)
	}

	w := walker.New(opts.IgnoreFile)
	files, err := w.Walk(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("walk corpus: %w", err)
	}

	files = filterByType(files, opts.TypeFilter)
	files = filterByExclude(files, opts.ExcludeGlobs)

	var (
		mu         sync.Mutex
		candidates = make(map[string]Candidate, len(files))
		errCount   int
	)

	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g.SetLimit(workers)

	for _, f := range files {
		f := f
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			content, truncated, readErr := readCapped(f.AbsPath, MaxCandidateBytes)
			if readErr != nil {
				mu.Lock()
				errCount++
				mu.Unlock()
				return nil
			}
			if !re.MatchString(content) {
				return nil
			}

			mu.Lock()
			candidates[f.Path] = Candidate{Path: f.Path, Content: content, Truncated: truncated}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Candidates: candidates, SkippedErrors: errCount}
	if errCount > errorThreshold {
		result.Warning = fmt.Sprintf("skipped %d unreadable files", errCount)
	}
	return result, nil
}

func filterByType(files []walker.File, types []string) []walker.File {
	if len(types) == 0 {
		return files
	}
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[strings.ToLower(t)] = true
	}
	out := files[:0:0]
	for _, f := range files {
		if allowed[strings.ToLower(filepath.Ext(f.Path))] {
			out = append(out, f)
		}
	}
	return out
}

func filterByExclude(files []walker.File, globs []string) []walker.File {
	if len(globs) == 0 {
		return files
	}
	out := files[:0:0]
	for _, f := range files {
		excluded := false
		for _, g := range globs {
			if matched, _ := filepath.Match(g, f.Path); matched {
				excluded = true
				break
			}
			if matched, _ := filepath.Match(g, filepath.Base(f.Path)); matched {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, f)
		}
	}
	return out
}

// readCapped reads path, truncating at maxBytes.
func readCapped(path string, maxBytes int64) (content string, truncated bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", false, err
	}

	toRead := info.Size()
	if toRead > maxBytes {
		toRead = maxBytes
		truncated = true
	}

	buf := make([]byte, toRead)
	if _, err := readFull(f, buf); err != nil {
		return "", false, err
	}

	return string(buf), truncated, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			if total == len(buf) {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
