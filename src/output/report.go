package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sofmeright/packwright/src/batch"
	"github.com/sofmeright/packwright/src/build"
	"github.com/sofmeright/packwright/src/deps"
	"github.com/sofmeright/packwright/src/pipeline"
	"github.com/sofmeright/packwright/src/structure"
)

// SectionBuild renders a single build result.
func SectionBuild(w io.Writer, r *build.BuildResult, color bool) {
	sec := NewSection(w, "Build", r.Duration, color)
	sec.Field("source", r.Source)
	sec.Field("format", string(r.Format))
	if r.Success {
		SummaryRow(w, "status", "success", r.OutputPath, color)
	} else {
		SummaryRow(w, "status", "failed", r.Kind.String(), color)
		for _, line := range strings.Split(strings.TrimSpace(r.Error), "\n") {
			sec.Row("  %s", paint(color, colorRed, line))
		}
	}
	sec.Close()
}

// SectionStructure renders a structure or entry-point report.
func SectionStructure(w io.Writer, title string, r *structure.Report, color bool) {
	sec := NewSection(w, title, 0, color)
	status := "valid"
	if !r.Valid {
		status = "invalid"
	}
	SummaryRow(w, "status", status, fmt.Sprintf("score %d/100 (%d of %d checks)", r.Score, r.Passed, r.Total), color)
	sec.List("Errors", r.Errors, colorRed)
	sec.List("Warnings", r.Warnings, colorYellow)
	sec.List("Recommendations", r.Recommendations, colorCyan)
	sec.Close()
}

// SectionDependencies renders a dependency analysis and its validation.
func SectionDependencies(w io.Writer, set *deps.DependencySet, rep *deps.Report, v *deps.Validation, color bool) {
	sec := NewSection(w, "Dependencies", rep.Duration, color)
	sec.Field("files", fmt.Sprintf("%d scanned, %d skipped", rep.Files, len(rep.Skipped)))
	if len(rep.Manifests) > 0 {
		sec.Field("manifests", strings.Join(rep.Manifests, ", "))
	}
	sec.Field("standard", fmt.Sprintf("%d", len(set.Standard)))
	sec.Field("internal", fmt.Sprintf("%d", len(set.Internal)))
	sec.Field("external", fmt.Sprintf("%d", len(set.External)))

	sec.Separator()
	names := make([]string, 0, len(set.Merged))
	for name, constraint := range set.Merged {
		if constraint == deps.Latest {
			constraint = " (unpinned)"
		}
		names = append(names, name+constraint)
	}
	sort.Strings(names)
	sec.List("Requirements", names, colorGray)
	sec.List("Missing", v.Missing, colorRed)
	sec.List("Security", v.SecurityIssues, colorRed)
	sec.List("Compatibility", v.CompatibilityIssues, colorYellow)
	sec.List("Recommendations", set.Recommendations, colorCyan)
	if !rep.EnvironmentChecked {
		sec.Row("")
		sec.Row("%s", Dimmed("environment not inspected; missing packages unknown", color))
	}
	sec.Close()
}

// SectionBatch renders a batch outcome, one row per input in completion order.
func SectionBatch(w io.Writer, r *batch.Result, color bool) {
	sec := NewSection(w, "Batch", r.Duration, color)
	for _, path := range r.Order {
		res := r.Results[path]
		if res == nil {
			continue
		}
		if res.Success {
			SummaryRow(w, shorten(path), "success", res.OutputPath, color)
			continue
		}
		SummaryRow(w, shorten(path), "failed", firstLine(res.Error), color)
	}
	sec.Separator()
	sec.Row("%s", bold(color, fmt.Sprintf("%d/%d built (%.1f%%)", r.Successful, r.Total, r.SuccessRate())))
	sec.Close()
}

// SectionReadiness renders the overall project assessment.
func SectionReadiness(w io.Writer, r *pipeline.ProjectReport, color bool) {
	sec := NewSection(w, "Readiness", 0, color)
	if r.Revision != nil {
		sec.Field("revision", r.Revision.String())
	}
	if r.License != "" {
		sec.Field("license", r.License)
	}
	status := "ready"
	if !r.Ready() {
		status = "failed"
	}
	SummaryRow(w, "score", status, fmt.Sprintf("%d/100  %s", r.Score, r.Readiness), color)
	sec.List("Optimizations", r.Recommendations, colorCyan)
	sec.List("Next steps", r.NextSteps, colorGray)
	sec.Close()
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	return s
}

// shorten keeps the tail of long paths so rows stay aligned.
func shorten(p string) string {
	const limit = 28
	if len(p) <= limit {
		return p
	}
	return "…" + p[len(p)-limit+1:]
}
