package query

import (
	"path/filepath"
	"strings"

	"github.com/nijaru/hygrep/internal/block"
)

// Filter narrows a candidate set before scoring. A zero-value Filter
// matches everything.
type Filter struct {
	// Extensions restricts matches to files with one of these extensions
	// (including the leading dot, e.g. ".go"). Empty means all types.
	Extensions []string
	// ExcludeGlobs drops files matching any of these filepath.Match-style
	// globs, evaluated against both the full relative path and basename.
	ExcludeGlobs []string
	// Kinds restricts matches to these block kinds. Empty means all kinds.
	Kinds []block.Kind
}

func (f Filter) matches(c Candidate) bool {
	if len(f.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(c.File))
		ok := false
		for _, want := range f.Extensions {
			if strings.ToLower(want) == ext {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	for _, g := range f.ExcludeGlobs {
		if matched, _ := filepath.Match(g, c.File); matched {
			return false
		}
		if matched, _ := filepath.Match(g, filepath.Base(c.File)); matched {
			return false
		}
	}

	if len(f.Kinds) > 0 {
		ok := false
		for _, k := range f.Kinds {
			if k == c.Kind {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	return true
}

// apply returns the subset of candidates passing f, preserving order.
func (f Filter) apply(candidates []Candidate) []Candidate {
	out := candidates[:0:0]
	for _, c := range candidates {
		if f.matches(c) {
			out = append(out, c)
		}
	}
	return out
}
