// Package main provides the entry point for the hygrep CLI.
package main

import (
	"os"

	"github.com/nijaru/hygrep/cmd/hygrep/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
