package build

import (
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoHiddenImports is returned when a spec file has no hiddenimports
// list to patch.
var ErrNoHiddenImports = errors.New("spec file has no hiddenimports list")

var (
	hiddenListRe = regexp.MustCompile(`hiddenimports\s*=\s*\[([^\]]*)\]`)
	quotedRe     = regexp.MustCompile(`['"]([^'"]+)['"]`)
)

// PatchSpecHiddenImports adds modules to the first hiddenimports list in
// the spec file at path. Entries already present are kept in place and
// new ones are appended in the order given.
func PatchSpecHiddenImports(path string, modules []string) error {
	if len(modules) == 0 {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	loc := hiddenListRe.FindSubmatchIndex(data)
	if loc == nil {
		return ErrNoHiddenImports
	}

	var names []string
	seen := make(map[string]bool)
	for _, m := range quotedRe.FindAllSubmatch(data[loc[2]:loc[3]], -1) {
		n := string(m[1])
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	changed := false
	for _, n := range modules {
		n = strings.TrimSpace(n)
		if n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	var out []byte
	out = append(out, data[:loc[0]]...)
	out = append(out, "hiddenimports=["+strings.Join(quoted, ", ")+"]"...)
	out = append(out, data[loc[1]:]...)
	return os.WriteFile(path, out, info.Mode().Perm())
}
