// Package output renders reports for the terminal and for CI systems.
// Diagnostics go through slog; everything a user is meant to read goes
// through here.
package output

import (
	"os"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}

func paint(color bool, code, s string) string {
	if !color {
		return s
	}
	return code + s + colorReset
}

func bold(color bool, s string) string { return paint(color, colorBold, s) }

// Dimmed returns dimmed text if color is enabled.
func Dimmed(text string, color bool) string { return paint(color, colorGray, text) }
