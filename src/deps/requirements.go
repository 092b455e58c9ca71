package deps

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// WriteRequirements writes set.Merged as a requirements.txt: one package
// per line, pinned when a constraint is known.
func WriteRequirements(w io.Writer, set *DependencySet) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# Generated by packwright from static dependency analysis.")
	fmt.Fprintln(bw, "# Review pins before committing.")
	fmt.Fprintln(bw)

	names := make([]string, 0, len(set.Merged))
	for name := range set.Merged {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	for _, name := range names {
		c := set.Merged[name]
		if c == Latest || c == "" {
			fmt.Fprintln(bw, name)
			continue
		}
		fmt.Fprintf(bw, "%s%s\n", name, c)
	}
	return bw.Flush()
}

// GenerateRequirementsFile writes the requirements list to path.
func GenerateRequirementsFile(path string, set *DependencySet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteRequirements(f, set); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// FormatReport renders the analysis as plain text for build logs.
func FormatReport(set *DependencySet, rep *Report, v *Validation) string {
	var b strings.Builder
	line := func(label string, names []string) {
		if len(names) == 0 {
			fmt.Fprintf(&b, "%s: none\n", label)
			return
		}
		fmt.Fprintf(&b, "%s (%d): %s\n", label, len(names), strings.Join(names, ", "))
	}
	line("Standard library", set.Standard.Sorted())
	line("Internal", set.Internal.Sorted())
	line("External", set.External.Sorted())

	var pinned []string
	for _, name := range sortedKeys(set.Merged) {
		pinned = append(pinned, name+" "+set.Merged[name])
	}
	line("Requirements", pinned)

	if rep != nil {
		fmt.Fprintf(&b, "Files scanned: %d (line-scanned %d, skipped %d)\n", rep.Files, len(rep.Fallback), len(rep.Skipped))
		if !rep.EnvironmentChecked {
			b.WriteString("Environment: not inspected, missing packages unknown\n")
		}
	}
	line("Missing", set.Missing)
	if v != nil {
		line("Security", v.SecurityIssues)
		line("Compatibility", v.CompatibilityIssues)
	}
	for _, r := range set.Recommendations {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	return b.String()
}
