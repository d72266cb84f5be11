package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nijaru/hygrep/internal/corpusindex"
)

func newCleanCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "clean [path]",
		Short: "Remove the on-disk index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			if err := corpusindex.Clean(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "removed", corpusindex.IndexDirFor(path))
			if recursive {
				// Nested corpora (e.g. vendored subprojects) may carry their
				// own .hhg/; spec.md's index is tree-wide, so this is a
				// convenience sweep, not a separate indexing unit.
				return cleanNested(cmd, path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Also remove any nested .hhg directories")
	return cmd
}
