package output

import (
	"fmt"
	"io"
	"strings"
)

// BannerInfo holds the identity fields printed at the top of a run.
type BannerInfo struct {
	Version string
	Commit  string
	Backend string
	Engine  string
}

// Banner prints a one-line identity header followed by a rule.
func Banner(w io.Writer, info BannerInfo, color bool) {
	parts := []string{bold(color, paint(color, colorCyan, "packwright"))}
	if info.Version != "" {
		parts = append(parts, info.Version)
	}
	if info.Commit != "" {
		parts = append(parts, Dimmed(info.Commit, color))
	}
	if info.Engine != "" {
		backend := info.Engine
		if info.Backend != "" && info.Backend != info.Engine {
			backend += " (" + info.Backend + ")"
		}
		parts = append(parts, "engine "+backend)
	}
	fmt.Fprintf(w, "\n    %s\n", strings.Join(parts, " · "))
}
