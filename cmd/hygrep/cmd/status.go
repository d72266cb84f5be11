package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nijaru/hygrep/internal/corpusindex"
	hygrepErrors "github.com/nijaru/hygrep/internal/errors"
	"github.com/nijaru/hygrep/internal/output"
	"github.com/nijaru/hygrep/pkg/hygrep"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [path]",
		Short: "Report index state and staleness",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runStatus(cmd, path)
		},
	}
}

func runStatus(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if !corpusindex.Exists(path) {
		out.Warning("no index present; run 'hygrep build'")
		exitCode = 1
		return nil
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer emb.Close()

	idx, err := hygrep.NewIndexer(path, hygrep.WithIndexerEmbedder(emb), hygrep.WithIndexerIgnoreFile(cfg.IgnoreFile))
	if err != nil {
		return err
	}
	defer idx.Close()

	stale, err := idx.Stale(cmd.Context(), emb.ModelVersion(), emb.Dimensions())
	if err != nil {
		if hygrepErrors.GetCode(err) == hygrepErrors.ErrCodeIndexIncompatible {
			out.Warning("index is incompatible with the current model; run 'hygrep build' to rebuild")
			exitCode = 1
			return nil
		}
		return err
	}

	if len(stale) == 0 {
		out.Success("index is up to date")
	} else {
		out.Warningf("%d file(s) changed since last build:", len(stale))
		for _, f := range stale {
			out.Status("", f)
		}
	}
	return nil
}
