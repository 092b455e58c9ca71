// Package deps statically analyzes a Python project tree: it extracts
// imports from every source file, classifies them, merges in manifest
// files, and checks the result against the host environment.
package deps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"

	"github.com/sofmeright/packwright/src/ctxlog"
	"github.com/sofmeright/packwright/src/pysyntax"
	"github.com/sofmeright/packwright/src/source"
)

// DependencySet is the classified result of an analysis. Standard, Internal
// and External are pairwise disjoint.
type DependencySet struct {
	Standard NameSet
	Internal NameSet
	External NameSet

	// Merged maps distribution names to a constraint such as "==1.2" or
	// Latest. Manifest entries win over discovered imports.
	Merged map[string]string

	Missing         []string
	Recommendations []string
}

// NewDependencySet returns an empty set.
func NewDependencySet() *DependencySet {
	return &DependencySet{
		Standard: NameSet{},
		Internal: NameSet{},
		External: NameSet{},
		Merged:   map[string]string{},
	}
}

// SkippedFile is a source file excluded from analysis.
type SkippedFile struct {
	Path   string
	Reason string
}

// Report describes how an analysis went.
type Report struct {
	Root               string
	Files              int
	Fallback           []string // scanned line by line after a parse failure
	Skipped            []SkippedFile
	Manifests          []string
	ManifestErrors     []string
	EnvironmentChecked bool
	Installed          map[string]string
	Duration           time.Duration
}

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	"__pycache__":   true,
	"venv":          true,
	"env":           true,
	"node_modules":  true,
	"build":         true,
	"dist":          true,
	"site-packages": true,
}

type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

type scanned struct {
	imports  []pysyntax.Import
	fallback bool
	parseErr string
}

// Analyzer extracts dependencies from project trees. It is safe for
// concurrent use.
type Analyzer struct {
	Source      *source.Validator
	Inspector   EnvironmentInspector
	Concurrency int

	cache *lru.Cache[cacheKey, scanned]
}

// NewAnalyzer returns an Analyzer gating files through src and checking the
// environment through inspector, which may be nil.
func NewAnalyzer(src *source.Validator, inspector EnvironmentInspector) *Analyzer {
	if src == nil {
		src = source.New()
	}
	cache, _ := lru.New[cacheKey, scanned](1024)
	return &Analyzer{
		Source:      src,
		Inspector:   inspector,
		Concurrency: runtime.NumCPU() * 2,
		cache:       cache,
	}
}

// Analyze scans root. It fails only when root is not a readable directory;
// individual file problems are recorded in the report.
func (a *Analyzer) Analyze(ctx context.Context, root string) (*DependencySet, *Report, error) {
	start := time.Now()
	log := ctxlog.FromContext(ctx)

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("project root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("project root %s is not a directory", root)
	}

	report := &Report{Root: root}
	files, err := a.collect(root)
	if err != nil {
		return nil, nil, fmt.Errorf("walking %s: %w", root, err)
	}
	report.Files = len(files)

	results := a.scanAll(ctx, files, report)

	var imports []pysyntax.Import
	var relative []string
	for _, r := range results {
		for _, imp := range r.imports {
			if imp.Module == "" {
				continue
			}
			imports = append(imports, imp)
			if imp.Level > 0 {
				relative = append(relative, imp.TopLevel())
			}
		}
	}

	set := NewDependencySet()
	cls := newClassifier(root, relative)
	for _, imp := range imports {
		name := imp.TopLevel()
		switch cls.Classify(name) {
		case Standard:
			set.Standard.Add(name)
		case Internal:
			set.Internal.Add(name)
		default:
			set.External.Add(name)
		}
	}
	for _, name := range set.External.Sorted() {
		for _, c := range companions[name] {
			if cls.Classify(c) == External {
				set.External.Add(c)
			}
		}
	}

	merged := newMerger()
	for _, name := range set.External.Sorted() {
		merged.addIfAbsent(Distribution(name), Latest)
	}
	manifests, errs := ReadManifests(root)
	for _, err := range errs {
		log.Warn("skipping manifest", "error", err)
		report.ManifestErrors = append(report.ManifestErrors, err.Error())
	}
	for _, m := range manifests {
		report.Manifests = append(report.Manifests, m.Path)
		for _, r := range m.Requirements {
			merged.set(r.Name, r.Constraint)
		}
	}
	set.Merged = merged.values

	if a.Inspector != nil {
		installed, err := a.Inspector.Installed(ctx)
		if err != nil {
			log.Warn("environment introspection unavailable; missing dependencies not checked", "error", err)
		} else {
			report.EnvironmentChecked = true
			report.Installed = installed
			for _, name := range sortedKeys(set.Merged) {
				if _, ok := installed[Canonical(name)]; !ok {
					set.Missing = append(set.Missing, name)
				}
			}
		}
	}

	set.Recommendations = recommend(set.Merged)
	report.Duration = time.Since(start)
	log.Debug("dependency analysis complete",
		"root", root,
		"files", report.Files,
		"external", len(set.External),
		"missing", len(set.Missing),
	)
	return set, report, nil
}

// collect returns every candidate source file under root in walk order.
func (a *Analyzer) collect(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		// setup.py is read as a manifest; its setuptools import is not a runtime dependency.
		if filepath.Dir(path) == root && d.Name() == "setup.py" {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, e := range a.Source.Extensions {
			if ext == e {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	return files, err
}

// scanAll parses files concurrently; results keep the input order.
func (a *Analyzer) scanAll(ctx context.Context, files []string, report *Report) []scanned {
	log := ctxlog.FromContext(ctx)
	results := make([]scanned, len(files))
	reasons := make([]string, len(files))

	n := a.Concurrency
	if n < 1 {
		n = 1
	}
	sem := semaphore.NewWeighted(int64(n))
	var wg sync.WaitGroup
	for i, path := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			reasons[i] = err.Error()
			continue
		}
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer sem.Release(1)
			res, err := a.scan(path)
			if err != nil {
				reasons[i] = err.Error()
				return
			}
			results[i] = res
		}(i, path)
	}
	wg.Wait()

	for i, path := range files {
		switch {
		case reasons[i] != "":
			log.Warn("skipping source file", "path", path, "reason", reasons[i])
			report.Skipped = append(report.Skipped, SkippedFile{Path: path, Reason: reasons[i]})
		case results[i].fallback:
			log.Warn("parse failed; scanned imports line by line", "path", path, "error", results[i].parseErr)
			report.Fallback = append(report.Fallback, path)
		}
	}
	return results
}

func (a *Analyzer) scan(path string) (scanned, error) {
	info, err := os.Stat(path)
	if err != nil {
		return scanned{}, err
	}
	key := cacheKey{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if a.cache != nil {
		if res, ok := a.cache.Get(key); ok {
			return res, nil
		}
	}

	data, err := a.Source.Read(path)
	if err != nil {
		return scanned{}, err
	}

	var res scanned
	mod, err := pysyntax.Parse(data)
	var syntaxErr *pysyntax.SyntaxError
	switch {
	case err == nil:
		res.imports = mod.Imports
	case errors.As(err, &syntaxErr):
		res.imports = scanImportLines(data)
		res.fallback = true
		res.parseErr = syntaxErr.Error()
	default:
		return scanned{}, err
	}

	if a.cache != nil {
		a.cache.Add(key, res)
	}
	return res, nil
}

var (
	importLineRe = regexp.MustCompile(`^\s*import\s+(.+)$`)
	fromLineRe   = regexp.MustCompile(`^\s*from\s+(\.*)([A-Za-z_][\w.]*)?\s+import\b`)
	dottedRe     = regexp.MustCompile(`^[A-Za-z_][\w.]*$`)
)

// scanImportLines is the degraded path for files the parser rejects. It
// reads one physical line at a time and cannot see imports split across
// lines.
func scanImportLines(data []byte) []pysyntax.Import {
	var out []pysyntax.Import
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if m := fromLineRe.FindStringSubmatch(line); m != nil {
			if m[2] == "" {
				continue
			}
			out = append(out, pysyntax.Import{Module: m[2], Level: len(m[1]), From: true, Line: i + 1})
			continue
		}
		m := importLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		body, _, _ := strings.Cut(m[1], "#")
		for _, part := range strings.Split(body, ",") {
			fields := strings.Fields(part)
			if len(fields) == 0 || !dottedRe.MatchString(fields[0]) {
				continue
			}
			out = append(out, pysyntax.Import{Module: fields[0], Line: i + 1})
		}
	}
	return out
}

// merger keeps one entry per canonical name, remembering the most recent
// spelling.
type merger struct {
	values map[string]string
	index  map[string]string
}

func newMerger() *merger {
	return &merger{values: map[string]string{}, index: map[string]string{}}
}

func (m *merger) set(name, constraint string) {
	c := Canonical(name)
	if old, ok := m.index[c]; ok {
		delete(m.values, old)
	}
	m.index[c] = name
	m.values[name] = constraint
}

func (m *merger) addIfAbsent(name, constraint string) {
	if _, ok := m.index[Canonical(name)]; ok {
		return
	}
	m.set(name, constraint)
}

// Names returns every name in the three buckets, sorted.
func (s *DependencySet) Names() []string {
	all := make([]string, 0, len(s.Standard)+len(s.Internal)+len(s.External))
	for _, b := range []NameSet{s.Standard, s.Internal, s.External} {
		all = append(all, b.Sorted()...)
	}
	sort.Strings(all)
	return all
}
