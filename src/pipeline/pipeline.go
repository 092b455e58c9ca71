// Package pipeline composes structure validation, dependency analysis,
// argument optimization and the process runner into one build.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sofmeright/packwright/src/build"
	"github.com/sofmeright/packwright/src/ctxlog"
	"github.com/sofmeright/packwright/src/deps"
	"github.com/sofmeright/packwright/src/gitver"
	"github.com/sofmeright/packwright/src/structure"
)

// Runner executes a single job. *build.Runner implements it.
type Runner interface {
	Run(ctx context.Context, job build.BuildJob) *build.BuildResult
}

// Pipeline validates, analyzes and builds a project directory.
type Pipeline struct {
	Structure       *structure.Validator
	Deps            *deps.Analyzer
	NewRunner       func() Runner
	EntryCandidates []string
	// ResourceDir is relative to the project root.
	ResourceDir string
	Timeout     time.Duration
}

// New returns a pipeline with default validators.
func New(newRunner func() Runner) *Pipeline {
	return &Pipeline{
		Structure:   structure.New(),
		Deps:        deps.NewAnalyzer(nil, nil),
		NewRunner:   newRunner,
		ResourceDir: "resources",
	}
}

const rule = "============================================================"

func section(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "%s\n%s\n%s\n%s", rule, title, rule, body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// BuildWithValidation builds the project at root, stopping at the first
// blocking problem. The returned log always starts with the validation and
// dependency reports that were produced before the build.
func (p *Pipeline) BuildWithValidation(ctx context.Context, root, format string, extraArgs []string) *build.BuildResult {
	start := time.Now()
	log := ctxlog.FromContext(ctx)
	placeholder := build.BuildJob{ID: uuid.NewString(), Source: root, Format: build.Format(format)}

	var header strings.Builder
	if info, err := gitver.Detect(root); err == nil {
		fmt.Fprintf(&header, "Revision: %s\n\n", info)
	}
	fail := func(err error) *build.BuildResult {
		log.Warn("pipeline stopped", "root", root, "error", err)
		return build.Failure(placeholder, err, header.String(), time.Since(start))
	}

	f, err := build.ParseFormat(format)
	if err != nil {
		return fail(build.Wrap(build.KindInputInvalid, err, "invalid format"))
	}
	// Paths derived from root are built here, so root is resolved once and
	// the traversal gate only ever sees clean absolute entries.
	if root, err = filepath.Abs(root); err != nil {
		return fail(build.Wrap(build.KindInputInvalid, err, "resolving project root"))
	}

	rep := p.structure().Validate(root)
	section(&header, "VALIDATION REPORT", rep.Text())
	if !rep.Valid {
		return fail(build.Errorf(build.KindInputInvalid, "project structure is invalid: %s", strings.Join(rep.Errors, "; ")))
	}

	set, drep, err := p.deps().Analyze(ctx, root)
	if err != nil {
		return fail(build.Wrap(build.KindInputInvalid, err, "analyzing dependencies"))
	}
	validation := deps.Validate(set, drep.Installed)
	section(&header, "DEPENDENCY ANALYSIS", deps.FormatReport(set, drep, validation))
	if !validation.Valid {
		return fail(build.Errorf(build.KindDependencyMissing, "missing dependencies: %s", strings.Join(validation.Missing, ", ")))
	}

	args := OptimizeArgs(extraArgs, set, p.resourceDir(root))
	entry, ok := structure.FindEntry(root, p.EntryCandidates)
	if !ok {
		return fail(build.Errorf(build.KindInputInvalid, "no entry file found in %s", root))
	}
	log.Debug("optimized arguments", "entry", entry, "args", args)

	job := build.NewJob(entry, f, build.WithExtraArgs(args...), build.WithTimeout(p.Timeout))
	res := p.NewRunner().Run(ctx, job)
	header.WriteString(rule + "\nBUILD LOG\n" + rule + "\n")
	return res.WithLogHeader(header.String())
}

func (p *Pipeline) structure() *structure.Validator {
	if p.Structure != nil {
		return p.Structure
	}
	return structure.New()
}

func (p *Pipeline) deps() *deps.Analyzer {
	if p.Deps != nil {
		return p.Deps
	}
	return deps.NewAnalyzer(nil, nil)
}

func (p *Pipeline) resourceDir(root string) string {
	dir := p.ResourceDir
	if dir == "" {
		dir = "resources"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	abs, err := filepath.Abs(filepath.Join(root, dir))
	if err != nil {
		return filepath.Join(root, dir)
	}
	return abs
}
