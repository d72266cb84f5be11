// Package corpusindex persists and loads the on-disk (manifest, vectors,
// blocks) trio that backs indexed-mode queries, and arbitrates concurrent
// builds with an advisory lock.
package corpusindex

import (
	"github.com/nijaru/hygrep/internal/block"
)

// IndexDir is the directory name, relative to a corpus root, holding the
// manifest/vectors/blocks/lock files.
const IndexDir = ".hhg"

const (
	manifestFile = "manifest.json"
	vectorsFile  = "vectors.f32"
	blocksFile   = "blocks.json"
	lockFile     = "lock"
)

// FileEntry records the last-indexed state of one source file.
type FileEntry struct {
	SHA256   string `json:"sha256"`
	Size     int64  `json:"size"`
	MTime    int64  `json:"mtime"`
	BlockIDs []int  `json:"block_ids"`
}

// Manifest is the top-level commit record: model identity plus, per source
// file, enough to detect staleness and locate its block rows.
type Manifest struct {
	ModelVersion string               `json:"model_version"`
	Dimensions   int                  `json:"dimensions"`
	CreatedAt    string               `json:"created_at"`
	RootPath     string               `json:"root_path"`
	Files        map[string]FileEntry `json:"files"`
}

// BlockMeta is a Block stripped of its embedding and content, plus a hash of
// the content for staleness/reuse checks — the serialized form of blocks.json.
type BlockMeta struct {
	File        string     `json:"file"`
	Kind        block.Kind `json:"kind"`
	Name        string     `json:"name"`
	StartLine   int        `json:"start_line"`
	EndLine     int        `json:"end_line"`
	ContentSHA  string     `json:"content_sha"`
}

// Index is a loaded (manifest, vectors, blocks) trio, ready for querying.
// Vectors is a read-only, memory-mapped (N, Dimensions) row-major matrix;
// Blocks[i] and the i-th row of Vectors describe the same block.
type Index struct {
	Manifest Manifest
	Blocks   []BlockMeta
	Vectors  *VectorMatrix
}

// Row returns the embedding vector for block i as a slice view into the
// mapped matrix. The slice is only valid while the Index's VectorMatrix is
// open.
func (idx *Index) Row(i int) []float32 {
	return idx.Vectors.Row(i)
}

// Len returns the number of indexed blocks.
func (idx *Index) Len() int {
	return len(idx.Blocks)
}
