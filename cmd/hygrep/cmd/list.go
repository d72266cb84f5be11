package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nijaru/hygrep/internal/corpusindex"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [path]",
		Short: "List every block in the committed index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runList(cmd, path)
		},
	}
}

func runList(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer emb.Close()

	idx, err := corpusindex.Load(path, emb.ModelVersion(), emb.Dimensions())
	if err != nil {
		return err
	}
	defer idx.Close()

	out := cmd.OutOrStdout()
	for _, b := range idx.Blocks {
		fmt.Fprintf(out, "%s:%d-%d  %s %s\n", b.File, b.StartLine, b.EndLine, b.Kind, b.Name)
	}
	return nil
}
