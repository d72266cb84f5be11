package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nijaru/hygrep/internal/corpusindex"
)

// cleanNested removes every .hhg directory found under root except root's
// own (already removed by the caller), for corpora that embed other
// indexed corpora (e.g. vendored subprojects).
func cleanNested(cmd *cobra.Command, root string) error {
	out := cmd.OutOrStdout()
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() || d.Name() != corpusindex.IndexDir {
			return nil
		}
		if filepath.Dir(path) == root {
			return fs.SkipDir
		}
		if removeErr := os.RemoveAll(path); removeErr == nil {
			fmt.Fprintln(out, "removed", path)
		}
		return fs.SkipDir
	})
}
