package deps

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Bucket is the classification of an imported top-level module.
type Bucket int

const (
	Standard Bucket = iota
	Internal
	External
)

func (b Bucket) String() string {
	switch b {
	case Standard:
		return "standard"
	case Internal:
		return "internal"
	default:
		return "external"
	}
}

// conventionalInternal are directory names treated as project-local even
// when the tree does not contain them.
var conventionalInternal = []string{"src", "tests", "config"}

// companions lists packages that must ship alongside an import because the
// backend does not detect them reliably.
var companions = map[string][]string{
	"PIL":           {"pillow"},
	"ttkbootstrap":  {"pillow"},
	"matplotlib":    {"pillow"},
	"customtkinter": {"darkdetect"},
}

// distributions maps import names to the distribution that provides them.
var distributions = map[string]string{
	"PIL":      "pillow",
	"cv2":      "opencv-python",
	"yaml":     "PyYAML",
	"sklearn":  "scikit-learn",
	"skimage":  "scikit-image",
	"bs4":      "beautifulsoup4",
	"dateutil": "python-dateutil",
	"dotenv":   "python-dotenv",
	"wx":       "wxPython",
	"serial":   "pyserial",
	"usb":      "pyusb",
	"Crypto":   "pycryptodome",
	"jwt":      "PyJWT",
	"magic":    "python-magic",
	"docx":     "python-docx",
	"fitz":     "PyMuPDF",
}

// Distribution returns the installable package name for an import name.
func Distribution(importName string) string {
	if d, ok := distributions[importName]; ok {
		return d
	}
	return importName
}

var canonicalRe = regexp.MustCompile(`[-_.]+`)

// Canonical normalizes a distribution name so that spellings such as
// "Foo_Bar" and "foo-bar" compare equal.
func Canonical(name string) string {
	return strings.ToLower(canonicalRe.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// classifier assigns each top-level name to exactly one bucket.
type classifier struct {
	local map[string]struct{}
}

// newClassifier collects the project's local top-level names: packages and
// modules at the root and under src/, plus names reached by relative
// imports.
func newClassifier(root string, relative []string) *classifier {
	c := &classifier{local: toSet(conventionalInternal...)}
	for _, dir := range []string{root, filepath.Join(root, "src")} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			switch {
			case e.IsDir():
				if _, err := os.Stat(filepath.Join(dir, name, "__init__.py")); err == nil {
					c.local[name] = struct{}{}
				}
			case strings.HasSuffix(name, ".py"):
				c.local[strings.TrimSuffix(name, ".py")] = struct{}{}
			}
		}
	}
	for _, r := range relative {
		c.local[r] = struct{}{}
	}
	return c
}

// Classify applies the fixed precedence: standard library, then local,
// then external.
func (c *classifier) Classify(name string) Bucket {
	if IsStdlib(name) {
		return Standard
	}
	if _, ok := c.local[name]; ok {
		return Internal
	}
	return External
}

// NameSet is a set of module names.
type NameSet map[string]struct{}

// Add inserts name.
func (s NameSet) Add(name string) { s[name] = struct{}{} }

// Has reports membership.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in lexical order.
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
