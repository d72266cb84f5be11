// Package cmd provides the CLI commands for hygrep.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nijaru/hygrep/internal/config"
	hygrepErrors "github.com/nijaru/hygrep/internal/errors"
	"github.com/nijaru/hygrep/internal/logging"
	"github.com/nijaru/hygrep/pkg/version"
)

// exitCode carries the result of a RunE back to Execute, for the commands
// (search, in particular) whose success/failure is richer than "no error".
var exitCode int

// wantJSONError is set by the search command when --json is passed, so a
// failure is reported as JSON on stderr too, consistent with --json's
// promise that output is machine-parseable.
var wantJSONError bool

// NewRootCmd creates the root command for the hygrep CLI.
func NewRootCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "hygrep <query> <path>",
		Short: "Hybrid lexical + semantic code search",
		Long: `hygrep combines a fast lexical recall scan with embedding-based
reranking to find relevant code by meaning, not just keyword.

Run 'hygrep build <path>' once to persist an index for faster, more
consistent results, or search directly; hygrep falls back to an ephemeral
scan-and-embed pass when no index is present.`,
		Version: version.Short(),
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, path, err := splitQueryAndPath(args)
			if err != nil {
				return hygrepErrors.ArgumentError(err.Error(), nil)
			}
			return runSearch(cmd, query, path, opts)
		},
	}

	cmd.SetVersionTemplate("hygrep version {{.Version}}\n")
	bindSearchFlags(cmd, &opts)

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newModelCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// splitQueryAndPath applies spec.md's `<query> <path>` convention: when the
// last argument names an existing directory it is the corpus root and
// everything before it is the query; otherwise every argument is query text
// against the current directory. A single argument is treated as a query
// against the current directory.
func splitQueryAndPath(args []string) (query, path string, err error) {
	if len(args) == 1 {
		return args[0], ".", nil
	}
	last := args[len(args)-1]
	if info, statErr := os.Stat(last); statErr == nil && info.IsDir() {
		return strings.Join(args[:len(args)-1], " "), last, nil
	}
	return strings.Join(args, " "), ".", nil
}

// loadConfig resolves path to an absolute directory and loads its
// configuration. A directory without a config file yields defaults; a read,
// parse or validation error from Load is returned as is.
func loadConfig(path string) (*config.Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, hygrepErrors.PathError("cannot resolve path: "+path, err)
	}
	return config.Load(abs)
}

// Execute runs the hygrep CLI and returns the process exit code:
// 0 (match / success), 1 (no match), 2 (error).
func Execute() int {
	exitCode = 0
	wantJSONError = false

	if logger, cleanup, err := logging.Setup(logging.DefaultConfig()); err == nil {
		slog.SetDefault(logger)
		defer cleanup()
	}

	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		slog.Error("command failed", slog.Any("details", hygrepErrors.FormatForLog(err)))
		if wantJSONError {
			data, _ := hygrepErrors.FormatJSON(err)
			fmt.Fprintln(os.Stderr, string(data))
		} else {
			fmt.Fprint(os.Stderr, hygrepErrors.FormatForCLI(err))
		}
		return hygrepErrors.ExitCode(err)
	}
	return exitCode
}
