package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sofmeright/packwright/src/deps"
	"github.com/sofmeright/packwright/src/gitver"
	"github.com/sofmeright/packwright/src/structure"
)

// Readiness labels.
const (
	ReadyExcellent = "EXCELLENT"
	ReadyGood      = "GOOD"
	ReadyFair      = "FAIR"
	ReadyPoor      = "POOR"
	NotReady       = "NOT READY"
)

// largeDependencySet is where a virtual environment is recommended.
const largeDependencySet = 10

// ProjectReport is a readiness assessment of a project without building it.
type ProjectReport struct {
	Root            string
	Revision        *gitver.Info
	License         string
	Structure       *structure.Report
	Dependencies    *deps.DependencySet
	Analysis        *deps.Report
	Validation      *deps.Validation
	Score           int
	Readiness       string
	Recommendations []string
	NextSteps       []string
}

// Ready reports whether the project can be built as is.
func (r *ProjectReport) Ready() bool {
	return !strings.HasPrefix(r.Readiness, NotReady)
}

// Analyze assesses root. It fails only when root cannot be analyzed at all.
func (p *Pipeline) Analyze(ctx context.Context, root string) (*ProjectReport, error) {
	set, drep, err := p.deps().Analyze(ctx, root)
	if err != nil {
		return nil, err
	}
	rep := &ProjectReport{
		Root:         root,
		License:      gitver.DetectLicense(root),
		Structure:    p.structure().Validate(root),
		Dependencies: set,
		Analysis:     drep,
		Validation:   deps.Validate(set, drep.Installed),
	}
	if info, err := gitver.Detect(root); err == nil {
		rep.Revision = info
	}

	rep.Score = OverallScore(rep.Structure, rep.Validation)
	rep.Readiness = assessReadiness(rep.Structure, rep.Validation)
	rep.Recommendations = optimizationAdvice(set, rep.Structure)
	rep.NextSteps = nextSteps(rep.Structure, rep.Validation)
	return rep, nil
}

// OverallScore averages the structure score with 100 for a complete
// dependency set or 50 otherwise.
func OverallScore(s *structure.Report, v *deps.Validation) int {
	depScore := 50
	if v.Valid {
		depScore = 100
	}
	return (s.Score + depScore) / 2
}

func assessReadiness(s *structure.Report, v *deps.Validation) string {
	switch {
	case !s.Valid:
		return NotReady + ": project structure is invalid"
	case !v.Valid:
		return NotReady + ": dependencies are missing"
	case s.Score >= 90:
		return ReadyExcellent
	case s.Score >= 80:
		return ReadyGood
	case s.Score >= 70:
		return ReadyFair
	default:
		return ReadyPoor
	}
}

func optimizationAdvice(set *deps.DependencySet, s *structure.Report) []string {
	var out []string
	if usesAny(set, guiLibraries) {
		out = append(out, "GUI toolkit detected; build with --windowed to hide the console")
	}
	if usesAny(set, dataLibraries) {
		out = append(out, "data libraries detected; keep runtime files under resources/ so they are bundled")
	}
	if set.External.Has("requests") {
		out = append(out, "use --exclude-module for unused optional modules to reduce artifact size")
	}
	if len(set.External) > largeDependencySet {
		out = append(out, fmt.Sprintf("%d external packages; build inside a dedicated virtual environment", len(set.External)))
	}
	if s.Score < 80 {
		out = append(out, "improve the project structure before building")
	}
	return out
}

func nextSteps(s *structure.Report, v *deps.Validation) []string {
	var out []string
	if !s.Valid {
		out = append(out, "fix the blocking structure errors")
	}
	if len(v.Missing) > 0 {
		out = append(out, "install missing packages: pip install "+strings.Join(v.Missing, " "))
	}
	if len(v.SecurityIssues) > 0 {
		out = append(out, "upgrade packages with known vulnerabilities")
	}
	if s.Score < 80 {
		out = append(out, "follow the structure recommendations")
	}
	if len(out) == 0 {
		out = append(out, "project is ready to build")
	}
	return out
}

// Text renders the report.
func (r *ProjectReport) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", r.Root)
	if r.Revision != nil {
		fmt.Fprintf(&b, "Revision: %s\n", r.Revision)
	}
	if r.License != "" {
		fmt.Fprintf(&b, "License: %s\n", r.License)
	}
	fmt.Fprintf(&b, "Overall score: %d%%\nReadiness: %s\n\n", r.Score, r.Readiness)

	section(&b, "STRUCTURE VALIDATION", r.Structure.Text())
	section(&b, "DEPENDENCY ANALYSIS", deps.FormatReport(r.Dependencies, r.Analysis, r.Validation))
	section(&b, "OPTIMIZATION RECOMMENDATIONS", numbered(r.Recommendations, "none"))
	section(&b, "NEXT STEPS", numbered(r.NextSteps, "none"))
	return b.String()
}

func numbered(items []string, empty string) string {
	if len(items) == 0 {
		return empty + "\n"
	}
	var b strings.Builder
	for i, s := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}
