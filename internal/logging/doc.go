// Package logging provides file-based logging with rotation for hygrep.
// The CLI sets it up on every run with DefaultConfig: JSON logs at info
// level are written to ~/.hygrep/logs/hygrep.log and also to stderr.
package logging
