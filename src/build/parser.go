package build

import (
	"regexp"
	"sort"
	"strings"
)

// LogSummary is what ParseLog pulls out of backend output.
type LogSummary struct {
	Warnings       []string
	Errors         []string
	MissingModules []string
}

var (
	// "1234 WARNING: message" as printed by the backend's logger.
	levelRe = regexp.MustCompile(`^\d+\s+(INFO|DEBUG|WARNING|ERROR|CRITICAL):\s*(.*)$`)
	// Hidden import "foo.bar" not found!
	hiddenRe = regexp.MustCompile(`[Hh]idden import ['"]([\w.]+)['"] not found`)
	// ModuleNotFoundError: No module named 'foo'
	noModuleRe = regexp.MustCompile(`No module named ['"]([\w.]+)['"]`)
)

// ParseLog extracts warnings, errors and missing-module hints from a
// build log. Missing modules are de-duplicated and sorted.
func ParseLog(log string) LogSummary {
	var s LogSummary
	missing := make(map[string]bool)

	for _, line := range strings.Split(log, "\n") {
		line = strings.TrimRight(line, "\r")
		if m := levelRe.FindStringSubmatch(line); m != nil {
			switch m[1] {
			case "WARNING":
				s.Warnings = append(s.Warnings, m[2])
			case "ERROR", "CRITICAL":
				s.Errors = append(s.Errors, m[2])
			}
		} else if strings.HasPrefix(line, "WARNING: ") {
			s.Warnings = append(s.Warnings, strings.TrimPrefix(line, "WARNING: "))
		} else if strings.HasPrefix(line, "ERROR: ") {
			s.Errors = append(s.Errors, strings.TrimPrefix(line, "ERROR: "))
		}
		for _, re := range []*regexp.Regexp{hiddenRe, noModuleRe} {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				missing[m[1]] = true
			}
		}
	}

	for name := range missing {
		s.MissingModules = append(s.MissingModules, name)
	}
	sort.Strings(s.MissingModules)
	return s
}
