package deps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// expected are packages most projects eventually want, with the concern
// each covers.
var expected = []struct {
	name, purpose string
}{
	{"requests", "HTTP client"},
	{"pytest", "testing"},
	{"black", "formatting"},
	{"flake8", "linting"},
}

// transitive lists packages that should be pinned explicitly whenever the
// key package is used.
var transitive = map[string]string{
	"requests": "urllib3",
}

// advisories are version ranges with known vulnerabilities.
var advisories = []struct {
	name       string
	vulnerable string
	advice     string
}{
	{"urllib3", "< 1.26.0", "upgrade to 1.26.0 or newer"},
	{"requests", "< 2.25.0", "upgrade to 2.25.0 or newer"},
	{"cryptography", "< 3.3.0", "upgrade to 3.3.0 or newer"},
}

// recommend returns advisory notes for a merged requirement set.
func recommend(merged map[string]string) []string {
	have := make(map[string]bool, len(merged))
	for name := range merged {
		have[Canonical(name)] = true
	}

	var out []string
	for _, e := range expected {
		if !have[e.name] {
			out = append(out, fmt.Sprintf("consider adding %s (%s)", e.name, e.purpose))
		}
	}

	keys := make([]string, 0, len(transitive))
	for k := range transitive {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, pkg := range keys {
		dep := transitive[pkg]
		if have[pkg] && !have[dep] {
			out = append(out, fmt.Sprintf("%s is used without an explicit %s pin; add %s to keep its security fixes current", pkg, dep, dep))
		}
	}
	return out
}

// Validation is the outcome of checking a DependencySet against the
// environment and the advisory table.
type Validation struct {
	Valid               bool
	Missing             []string
	SecurityIssues      []string
	CompatibilityIssues []string
}

// Validate checks missing packages, pinned versions against the advisory
// table, and installed versions against declared constraints. installed may
// be nil when the environment could not be inspected.
func Validate(set *DependencySet, installed map[string]string) *Validation {
	v := &Validation{Missing: append([]string(nil), set.Missing...)}
	v.Valid = len(v.Missing) == 0

	for _, name := range sortedKeys(set.Merged) {
		constraint := set.Merged[name]
		req := Requirement{Name: name, Constraint: constraint}

		if op, ver := req.Operator(); op == "==" || op == "===" {
			if issue := securityIssue(name, ver); issue != "" {
				v.SecurityIssues = append(v.SecurityIssues, issue)
			}
		}

		if have, ok := installed[Canonical(name)]; ok && constraint != Latest {
			if issue := compatibilityIssue(name, constraint, have); issue != "" {
				v.CompatibilityIssues = append(v.CompatibilityIssues, issue)
			}
		}
	}
	return v
}

func securityIssue(name, version string) string {
	ver, err := semver.NewVersion(version)
	if err != nil {
		return ""
	}
	for _, a := range advisories {
		if Canonical(name) != a.name {
			continue
		}
		c, err := semver.NewConstraint(a.vulnerable)
		if err != nil {
			continue
		}
		if c.Check(ver) {
			return fmt.Sprintf("%s %s has known vulnerabilities; %s", name, version, a.advice)
		}
	}
	return ""
}

func compatibilityIssue(name, constraint, installed string) string {
	have, err := semver.NewVersion(installed)
	if err != nil {
		return ""
	}
	c, err := semver.NewConstraint(semverConstraint(constraint))
	if err != nil {
		return ""
	}
	if !c.Check(have) {
		return fmt.Sprintf("%s: installed %s does not satisfy %s", name, installed, constraint)
	}
	return ""
}

// semverConstraint translates PEP 440 operators into the Masterminds
// dialect. Compatible-release (~=) keeps only its lower bound.
func semverConstraint(pep440 string) string {
	parts := strings.Split(pep440, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		switch {
		case strings.HasPrefix(p, "==="):
			p = "=" + p[3:]
		case strings.HasPrefix(p, "=="):
			p = "=" + p[2:]
		case strings.HasPrefix(p, "~="):
			p = ">=" + p[2:]
		}
		parts[i] = p
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
