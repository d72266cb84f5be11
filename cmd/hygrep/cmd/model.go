package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nijaru/hygrep/internal/output"
)

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect or install the bundled embedding model",
	}
	cmd.AddCommand(newModelStatusCmd())
	cmd.AddCommand(newModelInstallCmd())
	return cmd
}

func newModelStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the embedding model artefacts are present",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(".")
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			onnx := filepath.Join(cfg.ModelDir, "model.onnx")
			tok := filepath.Join(cfg.ModelDir, "tokenizer.json")
			onnxOK := fileExists(onnx)
			tokOK := fileExists(tok)
			out.Statusf("", "model dir: %s", cfg.ModelDir)
			out.Statusf("", "model.onnx:     %s", presence(onnxOK))
			out.Statusf("", "tokenizer.json: %s", presence(tokOK))
			if !onnxOK || !tokOK {
				exitCode = 1
			}
			return nil
		},
	}
}

func newModelInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Print instructions for installing the embedding model",
		Long: `hygrep does not fetch model weights itself: there is no bundled
downloader, and no network call happens implicitly. Place a
snowflake-arctic-embed-s ONNX export's model.onnx and tokenizer.json under
the configured model directory (see 'hygrep model status' for the path),
then re-run your query.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(".")
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Statusf("", "copy model.onnx and tokenizer.json into: %s", cfg.ModelDir)
			return nil
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}
