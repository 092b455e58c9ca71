package deps

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Latest is the constraint recorded for an unpinned requirement.
const Latest = "latest"

// Requirement is one parsed manifest entry.
type Requirement struct {
	Name       string
	Constraint string // operator and version, e.g. "==2.31.0", or Latest
}

// Operator splits the constraint into its operator and version. Latest and
// compound ranges return the first clause.
func (r Requirement) Operator() (op, version string) {
	if r.Constraint == Latest || r.Constraint == "" {
		return "", ""
	}
	first, _, _ := strings.Cut(r.Constraint, ",")
	for _, sep := range pinOperators {
		if strings.HasPrefix(first, sep) {
			return sep, strings.TrimSpace(first[len(sep):])
		}
	}
	return "", strings.TrimSpace(first)
}

// Manifest is the set of requirements read from one file.
type Manifest struct {
	Path         string
	Requirements []Requirement
}

// manifestFiles are read in this order; later files override earlier ones.
var manifestFiles = []struct {
	name  string
	parse func(io.Reader) ([]Requirement, error)
}{
	{"requirements.txt", ParseRequirements},
	{"Pipfile", ParsePipfile},
	{"pyproject.toml", ParsePyProject},
	{"setup.py", ParseSetupPy},
}

// Longest operators first so that "===" is not read as "==" + "=".
var pinOperators = []string{"===", "==", "~=", "!=", ">=", "<=", ">", "<"}

// ReadManifests parses every known manifest present in root. A manifest
// that cannot be parsed is returned as an error alongside the ones that
// could.
func ReadManifests(root string) ([]Manifest, []error) {
	var (
		out  []Manifest
		errs []error
	)
	for _, mf := range manifestFiles {
		path := filepath.Join(root, mf.name)
		f, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("opening %s: %w", mf.name, err))
			}
			continue
		}
		reqs, err := mf.parse(f)
		f.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("parsing %s: %w", mf.name, err))
			continue
		}
		out = append(out, Manifest{Path: path, Requirements: reqs})
	}
	return out, errs
}

// ParseRequirements reads a requirements.txt style list. Options, includes,
// comments and environment markers are ignored.
func ParseRequirements(r io.Reader) ([]Requirement, error) {
	var out []Requirement
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = line[:idx]
		}
		if req, ok := ParseRequirementSpec(line); ok {
			out = append(out, req)
		}
	}
	return out, scanner.Err()
}

var extrasRe = regexp.MustCompile(`\[[^\]]*\]`)

// ParseRequirementSpec parses a single PEP 508 style specifier such as
// `requests[socks]>=2.0; python_version>"3"`.
func ParseRequirementSpec(spec string) (Requirement, bool) {
	if idx := strings.Index(spec, ";"); idx >= 0 {
		spec = spec[:idx]
	}
	if idx := strings.Index(spec, "@"); idx >= 0 {
		spec = spec[:idx]
	}
	spec = strings.TrimSpace(extrasRe.ReplaceAllString(spec, ""))
	if spec == "" {
		return Requirement{}, false
	}

	spec = strings.NewReplacer("(", " ", ")", " ").Replace(spec)
	idx := strings.IndexAny(spec, "=~!<>")
	if idx < 0 {
		return Requirement{Name: strings.TrimSpace(spec), Constraint: Latest}, true
	}
	name := strings.TrimSpace(spec[:idx])
	if name == "" {
		return Requirement{}, false
	}
	return Requirement{Name: name, Constraint: strings.ReplaceAll(strings.TrimSpace(spec[idx:]), " ", "")}, true
}

// ParsePipfile reads [packages] from a Pipfile. Development packages are not
// build inputs and are skipped.
func ParsePipfile(r io.Reader) ([]Requirement, error) {
	var pipfile struct {
		Packages map[string]any `toml:"packages"`
	}
	if err := toml.NewDecoder(r).Decode(&pipfile); err != nil {
		return nil, err
	}
	var out []Requirement
	for name, spec := range pipfile.Packages {
		out = append(out, Requirement{Name: name, Constraint: pipfileConstraint(spec)})
	}
	sortRequirements(out)
	return out, nil
}

func pipfileConstraint(spec any) string {
	var v string
	switch s := spec.(type) {
	case string:
		v = s
	case map[string]any:
		v, _ = s["version"].(string)
	}
	v = strings.ReplaceAll(strings.TrimSpace(v), " ", "")
	if v == "" || v == "*" {
		return Latest
	}
	return v
}

// ParsePyProject reads PEP 621 [project].dependencies and Poetry's
// [tool.poetry.dependencies].
func ParsePyProject(r io.Reader) ([]Requirement, error) {
	var doc struct {
		Project struct {
			Dependencies []string `toml:"dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	var out []Requirement
	for _, spec := range doc.Project.Dependencies {
		if req, ok := ParseRequirementSpec(spec); ok {
			out = append(out, req)
		}
	}
	var poetry []Requirement
	for name, spec := range doc.Tool.Poetry.Dependencies {
		if strings.EqualFold(name, "python") {
			continue
		}
		poetry = append(poetry, Requirement{Name: name, Constraint: poetryConstraint(pipfileConstraint(spec))})
	}
	sortRequirements(poetry)
	return append(out, poetry...), nil
}

// poetryConstraint rewrites caret and bare versions into PEP 440 operators.
func poetryConstraint(c string) string {
	switch {
	case c == Latest:
		return c
	case strings.HasPrefix(c, "^"):
		return ">=" + c[1:]
	case strings.HasPrefix(c, "~") && !strings.HasPrefix(c, "~="):
		return "~=" + c[1:]
	case c != "" && c[0] >= '0' && c[0] <= '9':
		return "==" + c
	}
	return c
}

var (
	installRequiresRe = regexp.MustCompile(`(?s)install_requires\s*=\s*\[(.*?)\]`)
	quotedRe          = regexp.MustCompile(`["']([^"']+)["']`)
)

// ParseSetupPy extracts install_requires from a setup.py without executing
// it. Only literal lists are understood.
func ParseSetupPy(r io.Reader) ([]Requirement, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m := installRequiresRe.FindSubmatch(data)
	if m == nil {
		return nil, nil
	}
	var out []Requirement
	for _, q := range quotedRe.FindAllSubmatch(m[1], -1) {
		if req, ok := ParseRequirementSpec(string(q[1])); ok {
			out = append(out, req)
		}
	}
	return out, nil
}

func sortRequirements(reqs []Requirement) {
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].Name < reqs[j].Name })
}
