package config

import (
	"fmt"
	"slices"
	"time"
)

const (
	maxConcurrency = 64
	maxTimeout     = 24 * time.Hour
)

var (
	knownEngines = []string{"pyinstaller", "nuitka"}
	knownFormats = []string{"exe", "app", "binary"}
	logLevels    = []string{"debug", "info", "warn", "error"}
	logFormats   = []string{"text", "json"}
)

// Validate returns a copy of raw with every invalid value replaced by its
// default, plus one warning per replacement. Unset values are filled
// silently. raw is not modified.
func Validate(raw Config) (Config, []string) {
	cfg := raw
	cfg.Build.ExtraArgs = slices.Clone(raw.Build.ExtraArgs)
	cfg.Validate.Required = slices.Clone(raw.Validate.Required)
	cfg.Validate.Recommended = slices.Clone(raw.Validate.Recommended)
	cfg.Validate.BestPractice = slices.Clone(raw.Validate.BestPractice)
	cfg.Validate.EntryCandidates = slices.Clone(raw.Validate.EntryCandidates)

	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	// ── Backend ───────────────────────────────────────────────────────────

	backend := DefaultBackendConfig()
	switch {
	case cfg.Backend.Engine == "":
		cfg.Backend.Engine = backend.Engine
	case !slices.Contains(knownEngines, cfg.Backend.Engine):
		warn("backend.engine: unknown engine %q, using %s", cfg.Backend.Engine, backend.Engine)
		cfg.Backend.Engine = backend.Engine
	}
	cfg.Backend.ProbeTimeout = duration(cfg.Backend.ProbeTimeout, backend.ProbeTimeout, "backend.probe_timeout", warn)

	// ── Build ─────────────────────────────────────────────────────────────

	build := DefaultBuildConfig()
	if cfg.Build.OutputDir == "" {
		cfg.Build.OutputDir = build.OutputDir
	}
	if cfg.Build.ResourceDir == "" {
		cfg.Build.ResourceDir = build.ResourceDir
	}
	cfg.Build.Timeout = duration(cfg.Build.Timeout, build.Timeout, "build.timeout", warn)
	switch {
	case cfg.Build.Format == "":
		cfg.Build.Format = build.Format
	case !slices.Contains(knownFormats, cfg.Build.Format):
		warn("build.format: unknown format %q, using %s", cfg.Build.Format, build.Format)
		cfg.Build.Format = build.Format
	}
	keep := &cfg.Build.Backups
	for _, f := range []struct {
		name string
		n    *int
	}{
		{"keep_last", &keep.KeepLast},
		{"keep_daily", &keep.KeepDaily},
		{"keep_weekly", &keep.KeepWeekly},
		{"keep_monthly", &keep.KeepMonthly},
	} {
		if *f.n < 0 {
			warn("build.backups.%s: must not be negative, got %d", f.name, *f.n)
			*f.n = 0
		}
	}

	// ── Batch ─────────────────────────────────────────────────────────────

	switch n := cfg.Batch.MaxConcurrency; {
	case n == 0:
		cfg.Batch.MaxConcurrency = defaultConcurrency()
	case n < 0:
		warn("batch.max_concurrency: must be positive, got %d", n)
		cfg.Batch.MaxConcurrency = defaultConcurrency()
	case n > maxConcurrency:
		warn("batch.max_concurrency: %d exceeds %d, clamped", n, maxConcurrency)
		cfg.Batch.MaxConcurrency = maxConcurrency
	}

	// ── Python ────────────────────────────────────────────────────────────

	python := DefaultPythonConfig()
	if cfg.Python.Interpreter == "" {
		cfg.Python.Interpreter = python.Interpreter
	}
	switch cfg.Python.SyntaxCheck {
	case "":
		cfg.Python.SyntaxCheck = python.SyntaxCheck
	case SyntaxAuto, SyntaxBuiltin, SyntaxInterpreter:
	default:
		warn("python.syntax_check: unknown mode %q, using %s", cfg.Python.SyntaxCheck, python.SyntaxCheck)
		cfg.Python.SyntaxCheck = python.SyntaxCheck
	}

	// ── Badges / log ──────────────────────────────────────────────────────

	badges := DefaultBadgesConfig()
	if cfg.Badges.FontSize < 0 {
		warn("badges.font_size: must be positive, got %g", cfg.Badges.FontSize)
	}
	if cfg.Badges.FontSize <= 0 {
		cfg.Badges.FontSize = badges.FontSize
	}
	if cfg.Badges.Output == "" {
		cfg.Badges.Output = badges.Output
	}

	logCfg := DefaultLogConfig()
	cfg.Log.Level = oneOf(cfg.Log.Level, logLevels, logCfg.Level, "log.level", warn)
	cfg.Log.Format = oneOf(cfg.Log.Format, logFormats, logCfg.Format, "log.format", warn)

	return cfg, warnings
}

func duration(d, def time.Duration, field string, warn func(string, ...any)) time.Duration {
	switch {
	case d == 0:
		return def
	case d < 0:
		warn("%s: must be positive, got %s", field, d)
		return def
	case d > maxTimeout:
		warn("%s: %s exceeds %s, clamped", field, d, maxTimeout)
		return maxTimeout
	}
	return d
}

func oneOf(v string, allowed []string, def, field string, warn func(string, ...any)) string {
	if v == "" {
		return def
	}
	if !slices.Contains(allowed, v) {
		warn("%s: unknown value %q, using %s", field, v, def)
		return def
	}
	return v
}
