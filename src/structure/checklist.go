package structure

import (
	"os"
	"path/filepath"
	"strings"
)

// Item is one checklist entry. Alternatives are separated by "|"; the item
// passes when any alternative exists. A trailing "/" requires a directory.
type Item string

// Alternatives returns the paths that satisfy the item.
func (i Item) Alternatives() []string {
	parts := strings.Split(string(i), "|")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Label is the display form used in report messages.
func (i Item) Label() string {
	return strings.Join(i.Alternatives(), " or ")
}

// Present reports whether any alternative exists under root.
func (i Item) Present(root string) bool {
	for _, alt := range i.Alternatives() {
		wantDir := strings.HasSuffix(alt, "/")
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(alt, "/"))))
		if err != nil {
			continue
		}
		if info.IsDir() == wantDir {
			return true
		}
	}
	return false
}

// Checklist groups items by consequence of absence.
type Checklist struct {
	Required     []Item // absence is a blocking error
	Recommended  []Item // absence is a warning
	BestPractice []Item // absence is a recommendation
}

// DefaultChecklist is the layout a packaged project is expected to follow.
func DefaultChecklist() Checklist {
	return Checklist{
		Required: []Item{
			"src/main.py|main.py",
			"requirements.txt|pyproject.toml|setup.py",
			"README.md|README.rst|README.txt|README",
		},
		Recommended: []Item{
			"tests/",
			"docs/",
			".gitignore",
			"pyproject.toml|setup.py|setup.cfg",
		},
		BestPractice: []Item{
			"src/__init__.py",
			"tests/__init__.py",
			"config/__init__.py",
		},
	}
}

// Items converts plain strings, as read from configuration, into items.
func Items(ss []string) []Item {
	out := make([]Item, len(ss))
	for i, s := range ss {
		out[i] = Item(s)
	}
	return out
}

// DefaultEntryCandidates is the search order for a project's entry file.
var DefaultEntryCandidates = []string{"src/main.py", "main.py", "src/__main__.py", "__main__.py", "app.py"}

// FindEntry returns the first existing candidate under root.
func FindEntry(root string, candidates []string) (string, bool) {
	found := FindEntries(root, candidates)
	if len(found) == 0 {
		return "", false
	}
	return found[0], true
}

// FindEntries returns every existing candidate under root in search order.
func FindEntries(root string, candidates []string) []string {
	if len(candidates) == 0 {
		candidates = DefaultEntryCandidates
	}
	var found []string
	for _, c := range candidates {
		path := filepath.Join(root, filepath.FromSlash(c))
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			found = append(found, path)
		}
	}
	return found
}
