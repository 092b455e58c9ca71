package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const sectionWidth = 61 // inner width between │ and line end

// Section renders a box-drawing framed output section.
type Section struct {
	w     io.Writer
	name  string
	color bool
}

// NewSection creates a section and writes its header.
// If elapsed is non-zero, it appears right-aligned in the header.
func NewSection(w io.Writer, name string, elapsed time.Duration, color bool) *Section {
	s := &Section{w: w, name: name, color: color}
	s.writeHeader(elapsed)
	return s
}

// Row writes a content line inside the section frame.
func (s *Section) Row(format string, args ...any) {
	fmt.Fprintf(s.w, "    │ %s\n", fmt.Sprintf(format, args...))
}

// Field writes an aligned "label  value" row.
func (s *Section) Field(label, value string) {
	s.Row("%-14s%s", label, value)
}

// List writes a titled bullet list, or nothing when items is empty.
func (s *Section) List(title string, items []string, code string) {
	if len(items) == 0 {
		return
	}
	s.Row("")
	s.Row("%s", bold(s.color, fmt.Sprintf("%s (%d)", title, len(items))))
	for _, it := range items {
		s.Row("  %s %s", paint(s.color, code, "•"), it)
	}
}

// Separator writes a mid-section divider.
func (s *Section) Separator() {
	fmt.Fprintf(s.w, "    ├%s\n", strings.Repeat("─", sectionWidth))
}

// Close writes the section footer.
func (s *Section) Close() {
	fmt.Fprintf(s.w, "    └%s\n", strings.Repeat("─", sectionWidth))
}

// writeHeader renders: ── Name ──────────────────── elapsed ──
func (s *Section) writeHeader(elapsed time.Duration) {
	label := fmt.Sprintf("── %s ", s.name)
	suffix := "──"
	if elapsed > 0 {
		suffix = fmt.Sprintf(" %s ──", formatElapsed(elapsed))
	}

	fill := max(sectionWidth+4-len(label)-len(suffix), 1)
	line := label + strings.Repeat("─", fill) + suffix
	if s.color {
		fmt.Fprintf(s.w, "\n    \033[2;36m%s\033[0m\n", line)
	} else {
		fmt.Fprintf(s.w, "\n    %s\n", line)
	}
}

// StatusIcon returns a status icon, colored when color is set.
func StatusIcon(status string, color bool) string {
	switch status {
	case "success", "valid", "ready":
		return paint(color, colorGreen, "✓")
	case "failed", "invalid":
		return paint(color, colorRed, "✗")
	default:
		return paint(color, colorYellow, "⊘")
	}
}

// KV is a key-value pair for the context block.
type KV struct {
	Key   string
	Value string
}

// ContextBlock prints aligned key-value pairs, two per line.
func ContextBlock(w io.Writer, kv []KV) {
	if len(kv) == 0 {
		return
	}
	fmt.Fprintln(w)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(w, "    %-12s%-22s%-11s%s\n", kv[i].Key, kv[i].Value, kv[i+1].Key, kv[i+1].Value)
		} else {
			fmt.Fprintf(w, "    %-12s%s\n", kv[i].Key, kv[i].Value)
		}
	}
}

// formatElapsed formats a duration for display in section headers.
func formatElapsed(d time.Duration) string {
	if d < time.Millisecond {
		return "<1ms"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := d.Seconds() - float64(mins*60)
	return fmt.Sprintf("%dm%.1fs", mins, secs)
}

// SummaryRow writes a summary line with status icon.
func SummaryRow(w io.Writer, name, status, detail string, color bool) {
	fmt.Fprintf(w, "    │ %-12s%s  %s\n", name, StatusIcon(status, color), detail)
}
