// Package badge renders shields-style SVG badges for build, batch and
// readiness outcomes.
package badge

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sofmeright/packwright/src/batch"
	"github.com/sofmeright/packwright/src/build"
)

// Status drives a badge's value color.
type Status string

const (
	Passing Status = "passing"
	Partial Status = "partial"
	Failing Status = "failing"
	Unknown Status = "unknown"
)

// ParseStatus accepts the status words used on the command line.
func ParseStatus(s string) Status {
	switch strings.ToLower(s) {
	case "passing", "passed", "success":
		return Passing
	case "partial", "warning":
		return Partial
	case "failing", "failed", "critical":
		return Failing
	}
	return Unknown
}

// Color is the fill of the value segment.
func (s Status) Color() string {
	switch s {
	case Passing:
		return "#4c1"
	case Partial:
		return "#dfb317"
	case Failing:
		return "#e05d44"
	}
	return "#9f9f9f"
}

// Badge is a label, a status-colored value and an optional detail such as
// elapsed time.
type Badge struct {
	Label  string
	Value  string
	Detail string
	Color  string
}

// ForBuild summarizes a single build; the detail is its duration.
func ForBuild(r *build.BuildResult) Badge {
	b := Badge{Label: "build " + string(r.Format), Detail: elapsed(r.Duration)}
	if r.Success {
		b.Value, b.Color = "passing", Passing.Color()
	} else {
		b.Value, b.Color = "failing", Failing.Color()
	}
	return b
}

// ForBatch reports how many inputs of a batch built.
func ForBatch(r *batch.Result) Badge {
	status := Passing
	switch {
	case r.Total == 0:
		status = Unknown
	case r.Successful == 0:
		status = Failing
	case r.Failed > 0:
		status = Partial
	}
	return Badge{
		Label:  "builds",
		Value:  fmt.Sprintf("%d/%d", r.Successful, r.Total),
		Detail: elapsed(r.Duration),
		Color:  status.Color(),
	}
}

// ForScore reports a 0-100 readiness score.
func ForScore(score int) Badge {
	status := Failing
	switch {
	case score >= 80:
		status = Passing
	case score >= 60:
		status = Partial
	}
	return Badge{Label: "readiness", Value: fmt.Sprintf("%d%%", score), Color: status.Color()}
}

func elapsed(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// Engine renders badges in one font.
type Engine struct {
	font *Font
	// Embed inlines the font so the badge renders the same on hosts that
	// do not have it.
	Embed bool
}

// New returns an engine measuring text with f.
func New(f *Font) *Engine {
	return &Engine{font: f}
}

const (
	height     = 20
	padding    = 10
	labelFill  = "#555"
	detailFill = "#333"
)

type segment struct {
	text     string
	fill     string
	x, width int
}

func (e *Engine) segments(b Badge) []segment {
	segs := []segment{{text: b.Label, fill: labelFill}, {text: b.Value, fill: b.Color}}
	if b.Detail != "" {
		segs = append(segs, segment{text: b.Detail, fill: detailFill})
	}
	x := 0
	for i := range segs {
		segs[i].x = x
		segs[i].width = e.font.Width(segs[i].text) + padding
		x += segs[i].width
	}
	return segs
}

// Generate renders b as a flat shields-style SVG.
func (e *Engine) Generate(b Badge) string {
	if b.Color == "" {
		b.Color = Unknown.Color()
	}
	segs := e.segments(b)
	last := segs[len(segs)-1]
	width := last.x + last.width

	texts := make([]string, len(segs))
	for i, s := range segs {
		texts[i] = s.text
	}
	title := html.EscapeString(strings.Join(texts, ": "))

	var s strings.Builder
	fmt.Fprintf(&s, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" role="img" aria-label="%s">`, width, height, title)
	fmt.Fprintf(&s, `<title>%s</title><defs>`, title)
	if e.Embed {
		fmt.Fprintf(&s, `<style type="text/css">%s</style>`, e.font.fontFace())
	}
	s.WriteString(`<linearGradient id="s" x2="0" y2="100%"><stop offset="0" stop-color="#bbb" stop-opacity=".1"/><stop offset="1" stop-opacity=".1"/></linearGradient>`)
	fmt.Fprintf(&s, `<clipPath id="r"><rect width="%d" height="%d" rx="3" fill="#fff"/></clipPath></defs>`, width, height)

	s.WriteString(`<g clip-path="url(#r)">`)
	for _, seg := range segs {
		fmt.Fprintf(&s, `<rect x="%d" width="%d" height="%d" fill="%s"/>`, seg.x, seg.width, height, html.EscapeString(seg.fill))
	}
	fmt.Fprintf(&s, `<rect width="%d" height="%d" fill="url(#s)"/></g>`, width, height)

	family := html.EscapeString(fmt.Sprintf("'%s',Verdana,Geneva,sans-serif", e.font.Family))
	fmt.Fprintf(&s, `<g fill="#fff" text-anchor="middle" font-family="%s" font-size="%g">`, family, e.font.Size)
	for _, seg := range segs {
		mid, text := seg.x+seg.width/2, html.EscapeString(seg.text)
		fmt.Fprintf(&s, `<text x="%d" y="15" fill="#010101" fill-opacity=".3">%s</text><text x="%d" y="14">%s</text>`, mid, text, mid, text)
	}
	s.WriteString(`</g></svg>`)
	return s.String()
}

// WriteFile renders b into dir/name.svg, creating dir as needed.
func (e *Engine) WriteFile(dir, name string, b Badge) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating badge dir: %w", err)
	}
	path := filepath.Join(dir, name+".svg")
	if err := os.WriteFile(path, []byte(e.Generate(b)), 0o644); err != nil {
		return "", fmt.Errorf("writing badge %s: %w", path, err)
	}
	return path, nil
}
