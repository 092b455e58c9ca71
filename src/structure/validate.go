// Package structure scores a project tree against layout checklists and
// entry-point conventions before an expensive build is attempted.
package structure

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sofmeright/packwright/src/pysyntax"
)

// entryCheckCount is the number of scored entry-point checks. They count
// toward the total even when the entry file is absent so that adding files
// never lowers the score.
const entryCheckCount = 5

// Validator checks project layout.
type Validator struct {
	Checklist       Checklist
	EntryCandidates []string
	SecretScan      bool
}

// New returns a Validator with the default checklist and entry search path.
func New() *Validator {
	return &Validator{
		Checklist:       DefaultChecklist(),
		EntryCandidates: DefaultEntryCandidates,
		SecretScan:      true,
	}
}

// Validate scores root. It never fails; problems are reported as errors in
// the returned report.
func (v *Validator) Validate(root string) *Report {
	r := newReport()
	defer r.finish()

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		r.fail(fmt.Sprintf("project directory not found: %s", root))
		return r
	}

	for _, item := range v.Checklist.Required {
		if item.Present(root) {
			r.pass()
		} else {
			r.fail("required file missing: " + item.Label())
		}
	}
	for _, item := range v.Checklist.Recommended {
		if item.Present(root) {
			r.pass()
		} else {
			r.warn("recommended file missing: " + item.Label())
		}
	}
	for _, item := range v.Checklist.BestPractice {
		if item.Present(root) {
			r.pass()
		} else {
			r.recommend("consider adding " + item.Label())
		}
	}

	candidates := v.EntryCandidates
	if len(candidates) == 0 {
		candidates = DefaultEntryCandidates
	}
	if best := bestEntry(root, FindEntries(root, candidates)); best != nil {
		r.merge(best)
	} else {
		r.Valid = false
		r.Errors = append(r.Errors, "entry point not found (looked for "+strings.Join(candidates, ", ")+")")
		r.Total += entryCheckCount
	}

	if v.SecretScan {
		findings, err := ScanSecrets(root)
		if err != nil {
			r.Warnings = append(r.Warnings, "secret scan failed: "+err.Error())
		}
		for _, f := range findings {
			r.Warnings = append(r.Warnings, f.String())
		}
	}
	return r
}

// bestEntry scores every present candidate and keeps the one with the most
// passed checks, preferring a parsable file and then search order. Adding a
// candidate can therefore never lower the entry score.
func bestEntry(root string, paths []string) *Report {
	var best *Report
	for _, path := range paths {
		rel, _ := filepath.Rel(root, path)
		r := newReport()
		checkEntry(r, path, filepath.ToSlash(rel))
		if best == nil || r.Passed > best.Passed || (r.Passed == best.Passed && r.Valid && !best.Valid) {
			best = r
		}
	}
	return best
}

// ValidateEntryPoint scores a single entry file.
func (v *Validator) ValidateEntryPoint(path string) *Report {
	r := newReport()
	defer r.finish()
	checkEntry(r, path, filepath.Base(path))
	return r
}

// checkEntry parses the entry file and records the five scored checks.
func checkEntry(r *Report, path, name string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.Valid = false
		if os.IsNotExist(err) {
			r.Errors = append(r.Errors, "entry point not found: "+name)
		} else {
			r.Errors = append(r.Errors, fmt.Sprintf("reading %s: %v", name, err))
		}
		r.Total += entryCheckCount
		return
	}

	mod, err := pysyntax.Parse(data)
	if err != nil {
		r.Valid = false
		r.Errors = append(r.Errors, fmt.Sprintf("syntax error in %s: %v", name, err))
		r.Total += entryCheckCount
		return
	}

	main, hasMain := mod.Func("main")
	if hasMain {
		r.pass()
	} else {
		r.warn("main function not found in " + name)
	}
	if mod.MainGuard {
		r.pass()
	} else {
		r.warn(`entry point guard (if __name__ == "__main__") not found in ` + name)
	}
	if mod.Docstring || (hasMain && main.Docstring) {
		r.pass()
	} else {
		r.recommend("add a docstring to " + name)
	}
	if mod.Uses("logging") || mod.Uses("logger") {
		r.pass()
	} else {
		r.recommend("consider adding logging to " + name)
	}
	if mod.HasExcept {
		r.pass()
	} else {
		r.recommend("consider adding error handling to " + name)
	}

	if len(mod.Imports) == 0 {
		r.Warnings = append(r.Warnings, "no import statements in "+name)
	}
}
