// Package walker traverses a corpus tree, honouring ignore rules and
// skipping binary files, ahead of scanning or block extraction.
package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nijaru/hygrep/internal/gitignore"
)

// vcsDirs are always skipped, regardless of ignore files.
var vcsDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

// selfDir is hygrep's own index directory, always skipped.
const selfDir = ".hhg"

// binaryExtensions is a hard-coded set of extensions never treated as text.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".tiff": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true,
	".7z": true, ".rar": true, ".jar": true, ".war": true,
	".so": true, ".dylib": true, ".dll": true, ".a": true, ".lib": true,
	".exe": true, ".bin": true, ".o": true, ".obj": true, ".class": true,
	".pdf": true, ".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wasm": true,
	".pyc": true, ".db": true, ".sqlite": true,
}

// File describes a regular file discovered during the walk.
type File struct {
	// Path is relative to the corpus root, using forward slashes.
	Path string
	// AbsPath is the absolute filesystem path.
	AbsPath string
	// Size is the file size in bytes.
	Size int64
}

// Walker traverses a corpus tree depth-first, directories sorted
// lexicographically, applying .gitignore/ignore-file rules merged
// nearest-wins across directory levels.
type Walker struct {
	// IgnoreFile is an additional gitignore-syntax file consulted at every
	// directory level, alongside .gitignore. Empty disables it.
	IgnoreFile string
}

// New creates a Walker that also honours extraIgnoreFile (e.g. .hhgignore)
// at every directory level.
func New(extraIgnoreFile string) *Walker {
	return &Walker{IgnoreFile: extraIgnoreFile}
}

// Walk returns every eligible regular file under root, depth-first, with
// directories visited in lexicographic order. Symlinks pointing outside
// root are not followed; cycles are broken by tracking visited real paths.
func (w *Walker) Walk(root string) ([]File, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	var out []File
	visited := map[string]bool{realRoot: true}
	matcher := gitignore.New()

	if err := w.walkDir(absRoot, realRoot, "", matcher, visited, &out); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// walkDir recurses into dir (base is dir's path relative to the root, ""
// for the root itself), accumulating eligible files into out. matcher
// accumulates ignore rules as the walk descends so that nested ignore
// files take precedence over shallower ones (nearest-wins).
func (w *Walker) walkDir(dir, realRoot, base string, matcher *gitignore.Matcher, visited map[string]bool, out *[]File) error {
	if err := matcher.LoadDir(dir, base, w.IgnoreFile); err != nil {
		return fmt.Errorf("load ignore rules in %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		childPath := filepath.Join(dir, name)
		childBase := name
		if base != "" {
			childBase = base + "/" + name
		}

		if entry.Type()&os.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(childPath)
			if err != nil {
				continue
			}
			if !strings.HasPrefix(target, realRoot+string(filepath.Separator)) && target != realRoot {
				continue
			}
			if visited[target] {
				continue
			}
			info, err := os.Stat(childPath)
			if err != nil {
				continue
			}
			if info.IsDir() {
				visited[target] = true
				if w.shouldSkipDir(childBase, matcher) {
					continue
				}
				if err := w.walkDir(childPath, realRoot, childBase, matcher.Clone(), visited, out); err != nil {
					return err
				}
				continue
			}
			w.maybeAddFile(childPath, childBase, info.Size(), matcher, out)
			continue
		}

		if entry.IsDir() {
			if w.shouldSkipDir(childBase, matcher) {
				continue
			}
			if err := w.walkDir(childPath, realRoot, childBase, matcher.Clone(), visited, out); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		w.maybeAddFile(childPath, childBase, info.Size(), matcher, out)
	}

	return nil
}

func (w *Walker) shouldSkipDir(base string, matcher *gitignore.Matcher) bool {
	name := base
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		name = base[idx+1:]
	}
	if vcsDirs[name] || name == selfDir {
		return true
	}
	return matcher.Match(base, true)
}

func (w *Walker) maybeAddFile(absPath, relPath string, size int64, matcher *gitignore.Matcher, out *[]File) {
	// The ignore files themselves are rules, not corpus content.
	if name := filepath.Base(relPath); name == ".gitignore" || (w.IgnoreFile != "" && name == w.IgnoreFile) {
		return
	}
	if matcher.Match(relPath, false) {
		return
	}
	if binaryExtensions[strings.ToLower(filepath.Ext(relPath))] {
		return
	}
	*out = append(*out, File{Path: relPath, AbsPath: absPath, Size: size})
}
