package corpusindex

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/nijaru/hygrep/internal/walker"
)

// StaleFiles returns the relative paths of files whose current content
// hash no longer matches the committed manifest. A stale index is still
// queryable per spec.md; these rows are simply less accurate until the
// next build. Files present in the manifest but deleted from disk are
// reported stale too, since their rows no longer correspond to anything.
func StaleFiles(idx *Index, root, ignoreFile string) ([]string, error) {
	w := walker.New(ignoreFile)
	files, err := w.Walk(root)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(files))
	var stale []string

	for _, f := range files {
		seen[f.Path] = true
		entry, ok := idx.Manifest.Files[f.Path]
		if !ok {
			stale = append(stale, f.Path)
			continue
		}
		content, err := os.ReadFile(f.AbsPath)
		if err != nil {
			stale = append(stale, f.Path)
			continue
		}
		sum := sha256.Sum256(content)
		if hex.EncodeToString(sum[:]) != entry.SHA256 {
			stale = append(stale, f.Path)
		}
	}

	for path := range idx.Manifest.Files {
		if !seen[path] {
			stale = append(stale, path)
		}
	}

	return stale, nil
}

// IndexDirFor returns the on-disk index location for a given corpus root.
func IndexDirFor(root string) string {
	return filepath.Join(root, IndexDir)
}
