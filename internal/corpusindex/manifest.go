package corpusindex

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nijaru/hygrep/internal/block"
	hygrepErrors "github.com/nijaru/hygrep/internal/errors"
)

func toBlockMeta(b block.Block) BlockMeta {
	sum := sha256.Sum256([]byte(b.Content))
	return BlockMeta{
		File:       b.File,
		Kind:       b.Kind,
		Name:       b.Name,
		StartLine:  b.StartLine,
		EndLine:    b.EndLine,
		ContentSHA: hex.EncodeToString(sum[:]),
	}
}

// writeIndex commits a full (manifest, vectors, blocks) trio atomically:
// each file is written to a sibling temp path, fsynced, then renamed into
// place in commit order vectors -> blocks -> manifest. A reader observing a
// new manifest is guaranteed the matching vectors and blocks already landed.
func writeIndex(dir string, manifest Manifest, blocks []BlockMeta, vectors [][]float32) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	vectorsPath := filepath.Join(dir, vectorsFile)
	if err := writeAtomic(vectorsPath, func(tmp string) error {
		return WriteVectors(tmp, vectors, manifest.Dimensions)
	}); err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}

	blocksPath := filepath.Join(dir, blocksFile)
	if err := writeAtomic(blocksPath, func(tmp string) error {
		return writeJSON(tmp, blocks)
	}); err != nil {
		return fmt.Errorf("write blocks: %w", err)
	}

	manifestPath := filepath.Join(dir, manifestFile)
	if err := writeAtomic(manifestPath, func(tmp string) error {
		return writeJSON(tmp, manifest)
	}); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// writeAtomic writes via a sibling ".tmp" path, fsyncing inside write, and
// renames into place so a reader never observes a partially written file.
func writeAtomic(path string, write func(tmpPath string) error) error {
	tmp := path + ".tmp"
	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// loadManifest reads the (manifest, blocks, vectors) trio from dir without
// validating it against an embedder. Used internally by Build to find
// reusable rows from the previous commit, and by Load after validation.
func loadManifest(dir string) (*Index, error) {
	manifestData, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	blocksData, err := os.ReadFile(filepath.Join(dir, blocksFile))
	if err != nil {
		return nil, err
	}
	var blocks []BlockMeta
	if err := json.Unmarshal(blocksData, &blocks); err != nil {
		return nil, fmt.Errorf("parse blocks: %w", err)
	}

	vectors, err := OpenVectorMatrix(filepath.Join(dir, vectorsFile), manifest.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("open vectors: %w", err)
	}

	return &Index{Manifest: manifest, Blocks: blocks, Vectors: vectors}, nil
}

// Load reads the index at root/.hhg and validates it against the current
// embedder's model_version and dimensions. Any mismatch, or a missing or
// corrupt file, returns an IndexIncompatibleError telling the caller to
// rebuild rather than query a stale or foreign index.
func Load(root, wantModelVersion string, wantDims int) (*Index, error) {
	dir := filepath.Join(root, IndexDir)
	idx, err := loadManifest(dir)
	if err != nil {
		return nil, hygrepErrors.IndexIncompatibleError("index missing or unreadable; run 'hygrep build'", err)
	}
	if idx.Manifest.ModelVersion != wantModelVersion {
		idx.Vectors.Close()
		return nil, hygrepErrors.IndexIncompatibleError(
			fmt.Sprintf("index model_version %q does not match current embedder %q", idx.Manifest.ModelVersion, wantModelVersion), nil)
	}
	if idx.Manifest.Dimensions != wantDims {
		idx.Vectors.Close()
		return nil, hygrepErrors.IndexIncompatibleError(
			fmt.Sprintf("index dimensions %d do not match current embedder %d", idx.Manifest.Dimensions, wantDims), nil)
	}
	return idx, nil
}

// Close releases the index's memory-mapped vectors.
func (idx *Index) Close() error {
	if idx.Vectors == nil {
		return nil
	}
	return idx.Vectors.Close()
}

// Exists reports whether an index has ever been committed at root.
func Exists(root string) bool {
	_, err := os.Stat(filepath.Join(root, IndexDir, manifestFile))
	return err == nil
}

// Clean removes the index directory under root.
func Clean(root string) error {
	return os.RemoveAll(filepath.Join(root, IndexDir))
}
