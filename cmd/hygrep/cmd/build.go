package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nijaru/hygrep/internal/output"
	"github.com/nijaru/hygrep/pkg/hygrep"
)

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build [path]",
		Short: "Build or refresh the corpus index",
		Long: `Walk the corpus, reuse unchanged blocks from the previous build,
embed new or changed ones, and atomically commit the result to .hhg/.

A concurrent build in the same corpus fails fast rather than blocking.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runBuild(cmd, path)
		},
	}
}

func runBuild(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer emb.Close()

	idx, err := hygrep.NewIndexer(path,
		hygrep.WithIndexerEmbedder(emb),
		hygrep.WithIndexerIgnoreFile(cfg.IgnoreFile),
	)
	if err != nil {
		return err
	}
	defer idx.Close()

	stats, err := idx.Build(cmd.Context())
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	out.Successf("indexed %d files (%d reused, %d re-embedded, %d skipped), %d blocks",
		stats.FilesTotal, stats.FilesReused, stats.FilesReembedded, stats.FilesSkipped, stats.BlocksTotal)
	if stats.FilesSkipped > 0 {
		out.Warningf("%d file(s) could not be read or parsed and were skipped", stats.FilesSkipped)
	}
	return nil
}
