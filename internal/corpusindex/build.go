package corpusindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nijaru/hygrep/internal/block"
	"github.com/nijaru/hygrep/internal/embed"
	"github.com/nijaru/hygrep/internal/walker"
)

// BuildOptions configures one Build call.
type BuildOptions struct {
	// IgnoreFile is the extra gitignore-syntax file consulted alongside
	// .gitignore, e.g. ".hhgignore".
	IgnoreFile string
}

// BuildStats summarizes one Build run for reporting on stderr/JSON.
type BuildStats struct {
	FilesTotal      int
	FilesReused     int
	FilesReembedded int
	FilesSkipped    int
	BlocksTotal     int
}

// Build walks root, reusing block rows for files whose content and the
// embedder's model_version are unchanged since the previous commit, and
// extracting + embedding the rest, per spec.md's build protocol: lock,
// walk+hash, diff against previous manifest, embed the delta, write all
// three files atomically, unlock.
func Build(ctx context.Context, root string, emb embed.Embedder, extractor *block.Extractor, opts BuildOptions) (*Index, BuildStats, error) {
	var stats BuildStats

	dir := filepath.Join(root, IndexDir)
	lock := NewFileLock(dir)
	if err := lock.TryLock(); err != nil {
		return nil, stats, err
	}
	defer lock.Unlock()

	previous, _ := loadManifest(dir) // absent or corrupt: build from scratch
	if previous != nil {
		defer previous.Vectors.Close()
	}

	w := walker.New(opts.IgnoreFile)
	files, err := w.Walk(root)
	if err != nil {
		return nil, stats, fmt.Errorf("walk corpus: %w", err)
	}
	stats.FilesTotal = len(files)

	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	var blocks []BlockMeta
	var vectors [][]float32
	manifestFiles := make(map[string]FileEntry, len(files))
	var pendingContent []string
	var pendingIndices []int

	modelVersion := emb.ModelVersion()

	for _, f := range files {
		content, err := os.ReadFile(f.AbsPath)
		if err != nil {
			slog.Warn("skipping unreadable file", slog.String("file", f.Path), slog.String("error", err.Error()))
			stats.FilesSkipped++
			continue
		}
		sum := sha256.Sum256(content)
		sha := hex.EncodeToString(sum[:])

		if reused, ok := reuseFile(previous, modelVersion, f.Path, sha, &blocks, &vectors); ok {
			manifestFiles[f.Path] = FileEntry{SHA256: sha, Size: f.Size, BlockIDs: reused}
			stats.FilesReused++
			continue
		}

		lang := block.LanguageForExtension(filepath.Ext(f.Path))
		fileBlocks, err := extractor.Extract(f.Path, content, lang)
		if err != nil {
			slog.Warn("skipping unparsable file", slog.String("file", f.Path), slog.String("error", err.Error()))
			manifestFiles[f.Path] = FileEntry{SHA256: sha, Size: f.Size}
			stats.FilesSkipped++
			continue
		}

		ids := make([]int, 0, len(fileBlocks))
		for _, b := range fileBlocks {
			id := len(blocks)
			blocks = append(blocks, toBlockMeta(b))
			vectors = append(vectors, nil) // filled in once embedding completes
			pendingContent = append(pendingContent, b.Content)
			pendingIndices = append(pendingIndices, id)
			ids = append(ids, id)
		}
		manifestFiles[f.Path] = FileEntry{SHA256: sha, Size: f.Size, BlockIDs: ids}
		stats.FilesReembedded++
	}

	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	if len(pendingContent) > 0 {
		embedded, err := emb.EmbedBatch(ctx, pendingContent)
		if err != nil {
			return nil, stats, fmt.Errorf("embed blocks: %w", err)
		}
		for i, id := range pendingIndices {
			vectors[id] = embedded[i]
		}
	}
	stats.BlocksTotal = len(blocks)

	manifest := Manifest{
		ModelVersion: modelVersion,
		Dimensions:   emb.Dimensions(),
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		RootPath:     root,
		Files:        manifestFiles,
	}

	if err := writeIndex(dir, manifest, blocks, vectors); err != nil {
		return nil, stats, err
	}

	idx, err := Load(root, modelVersion, emb.Dimensions())
	return idx, stats, err
}

// reuseFile copies row IDs for path out of previous into blocks/vectors when
// its content hash and the previous build's model_version both still match,
// returning the new (compacted) block IDs and whether a reuse happened.
func reuseFile(previous *Index, modelVersion, path, sha string, blocks *[]BlockMeta, vectors *[][]float32) ([]int, bool) {
	if previous == nil || previous.Manifest.ModelVersion != modelVersion {
		return nil, false
	}
	entry, ok := previous.Manifest.Files[path]
	if !ok || entry.SHA256 != sha {
		return nil, false
	}

	ids := make([]int, 0, len(entry.BlockIDs))
	for _, oldID := range entry.BlockIDs {
		if oldID < 0 || oldID >= len(previous.Blocks) {
			continue
		}
		newID := len(*blocks)
		*blocks = append(*blocks, previous.Blocks[oldID])
		*vectors = append(*vectors, previous.Vectors.Row(oldID))
		ids = append(ids, newID)
	}
	return ids, true
}
