package build

import (
	"strconv"
	"strings"
)

// Args returns the backend argument vector for job. Source and SpecFile
// are used as given, so callers pass absolute paths.
func Args(job BuildJob, distPath, goos string) []string {
	args := []string{"--noconfirm", "--distpath=" + distPath}
	if job.SpecFile != "" {
		args = append(args, normalizeExtra(job.ExtraArgs, goos)...)
		return append(args, job.SpecFile)
	}

	args = append(args, "--onefile")
	switch job.Format {
	case FormatExe:
		args = append(args, "--noconsole")
	case FormatApp:
		args = append(args, "--windowed")
	}
	args = append(args, normalizeExtra(job.ExtraArgs, goos)...)
	return append(args, job.Source)
}

// CommandLine renders argv for logs.
func CommandLine(backend string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{backend}, args...) {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = strconv.Quote(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

var resourceFlags = map[string]bool{"--add-data": true, "--add-binary": true}

// normalizeExtra rewrites resource arguments to the host's separator. Both
// the "--add-data=SRC:DST" and "--add-data SRC:DST" forms are accepted.
func normalizeExtra(extra []string, goos string) []string {
	out := make([]string, 0, len(extra))
	for i := 0; i < len(extra); i++ {
		a := extra[i]
		if flag, val, ok := strings.Cut(a, "="); ok && resourceFlags[flag] {
			out = append(out, flag+"="+normalizeResource(val, goos))
			continue
		}
		if resourceFlags[a] && i+1 < len(extra) {
			out = append(out, a, normalizeResource(extra[i+1], goos))
			i++
			continue
		}
		out = append(out, a)
	}
	return out
}

// normalizeResource splits SRC and DST at ';' or at the first ':' that is
// not a drive letter, then joins them with the separator goos expects.
// A missing DST means the bundle root.
func normalizeResource(v, goos string) string {
	sep := ":"
	if goos == "windows" {
		sep = ";"
	}
	src, dst := SplitResource(v)
	if dst == "" {
		dst = "."
	}
	return src + sep + dst
}

// SplitResource separates a resource argument into SRC and DST. DST is
// empty when the value names only a source.
func SplitResource(v string) (src, dst string) {
	if i := strings.LastIndex(v, ";"); i >= 0 {
		return v[:i], v[i+1:]
	}
	start := 0
	if hasDriveLetter(v) {
		start = 2
	}
	if i := strings.Index(v[start:], ":"); i >= 0 {
		return v[:start+i], v[start+i+1:]
	}
	return v, ""
}

// hasDriveLetter matches "C:\" and "C:/" so that "a:b" still splits.
func hasDriveLetter(v string) bool {
	if len(v) < 3 || v[1] != ':' || (v[2] != '\\' && v[2] != '/') {
		return false
	}
	c := v[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
