package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sofmeright/packwright/src/badge"
	"github.com/sofmeright/packwright/src/batch"
	"github.com/sofmeright/packwright/src/build"
	"github.com/sofmeright/packwright/src/config"
	"github.com/sofmeright/packwright/src/deps"
	"github.com/sofmeright/packwright/src/pipeline"
	"github.com/sofmeright/packwright/src/source"
	"github.com/sofmeright/packwright/src/structure"
)

// Components are built from the validated config on demand so each command
// only pays for what it uses.

func newSourceValidator(c *config.Config) *source.Validator {
	v := source.New()
	switch c.Python.SyntaxCheck {
	case config.SyntaxInterpreter:
		v.Syntax = source.Interpreter{Python: c.Python.Interpreter}
	case config.SyntaxBuiltin:
		v.Syntax = source.Builtin{}
	default:
		v.Syntax = source.Resolve(c.Python.Interpreter)
	}
	return v
}

func newEngine(c *config.Config, override string) (build.Engine, error) {
	name := c.Backend.Engine
	if override != "" {
		name = override
	}
	return build.Get(name)
}

// backendPath is the configured backend executable, or the engine's own.
func backendPath(c *config.Config, eng build.Engine) string {
	if c.Backend.Path != "" {
		return c.Backend.Path
	}
	return eng.Executable()
}

// newRunnerFactory returns a constructor for process runners sharing one
// engine, source validator and live-output writer.
func newRunnerFactory(c *config.Config, eng build.Engine, live io.Writer) func() *build.Runner {
	src := newSourceValidator(c)
	backend := backendPath(c, eng)
	return func() *build.Runner {
		r := build.NewRunner(backend, c.Build.OutputDir)
		r.Timeout = c.Build.Timeout
		r.Engine = eng
		r.Source = src
		r.Verbose = verbose
		r.Stdout = live
		r.KeepBackups = c.Build.Backups
		r.Preflight = &build.Preflight{
			Backend:      backend,
			GOOS:         r.GOOS,
			ProbeTimeout: c.Backend.ProbeTimeout,
		}
		return r
	}
}

func newInspector(c *config.Config) deps.EnvironmentInspector {
	if !c.Python.InspectEnvironment {
		return nil
	}
	return deps.PipInspector{Python: c.Python.Interpreter}
}

func newAnalyzer(c *config.Config) *deps.Analyzer {
	return deps.NewAnalyzer(newSourceValidator(c), newInspector(c))
}

func newStructureValidator(c *config.Config) *structure.Validator {
	v := structure.New()
	v.SecretScan = c.Validate.SecretScan
	if len(c.Validate.Required) > 0 {
		v.Checklist.Required = structure.Items(c.Validate.Required)
	}
	if len(c.Validate.Recommended) > 0 {
		v.Checklist.Recommended = structure.Items(c.Validate.Recommended)
	}
	if len(c.Validate.BestPractice) > 0 {
		v.Checklist.BestPractice = structure.Items(c.Validate.BestPractice)
	}
	if len(c.Validate.EntryCandidates) > 0 {
		v.EntryCandidates = c.Validate.EntryCandidates
	}
	return v
}

func newPipeline(c *config.Config, runners func() *build.Runner) *pipeline.Pipeline {
	p := pipeline.New(func() pipeline.Runner { return runners() })
	p.Structure = newStructureValidator(c)
	p.Deps = newAnalyzer(c)
	p.EntryCandidates = c.Validate.EntryCandidates
	p.ResourceDir = c.Build.ResourceDir
	p.Timeout = c.Build.Timeout
	return p
}

func newOrchestrator(c *config.Config, runners func() *build.Runner) *batch.Orchestrator {
	return &batch.Orchestrator{
		NewRunner: func() batch.Executor {
			r := runners()
			r.PrefixOutput = true
			return r
		},
		Source: newSourceValidator(c),
	}
}

func newBadgeEngine(c config.BadgesConfig) (*badge.Engine, error) {
	var (
		f   *badge.Font
		err error
	)
	if c.FontFile != "" {
		f, err = badge.LoadFontFile(c.FontFile, c.FontSize)
	} else {
		f, err = badge.DefaultFont(c.FontSize)
	}
	if err != nil {
		return nil, fmt.Errorf("loading badge font: %w", err)
	}
	eng := badge.New(f)
	eng.Embed = c.Embed
	return eng, nil
}

// liveOutput is where backend output is mirrored; nil unless verbose.
func liveOutput() io.Writer {
	if verbose {
		return stderrMirror
	}
	return nil
}

var stderrMirror io.Writer = &lockedWriter{w: os.Stderr}

// lockedWriter serializes writes from concurrent runners so lines from
// different jobs never split each other.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
