package pipeline

import (
	"os"
	"strings"

	"github.com/sofmeright/packwright/src/deps"
)

// ResourceDest is where bundled project resources land inside the artifact.
const ResourceDest = "resources"

var guiLibraries = []string{
	"tkinter", "PyQt5", "PyQt6", "PySide2", "PySide6", "wx", "kivy", "customtkinter", "ttkbootstrap",
}

var dataLibraries = []string{"pandas", "numpy", "matplotlib", "seaborn", "scipy", "plotly"}

// OptimizeArgs derives backend arguments from the analyzed dependencies.
// GUI toolkits add --windowed, data libraries bundle resourceDir when it
// exists, and --strip is always requested. args is never modified.
func OptimizeArgs(args []string, set *deps.DependencySet, resourceDir string) []string {
	out := append([]string(nil), args...)

	if usesAny(set, guiLibraries) && !hasArg(out, "--windowed", "--noconsole", "-w") {
		out = append(out, "--windowed")
	}
	if usesAny(set, dataLibraries) && isDir(resourceDir) && !bundles(out, resourceDir) {
		out = append(out, "--add-data="+resourceDir+":"+ResourceDest)
	}
	if !hasArg(out, "--strip", "-s") {
		out = append(out, "--strip")
	}
	return out
}

func usesAny(set *deps.DependencySet, names []string) bool {
	if set == nil {
		return false
	}
	for _, n := range names {
		if set.External.Has(n) || set.Standard.Has(n) {
			return true
		}
	}
	return false
}

func hasArg(args []string, flags ...string) bool {
	for _, a := range args {
		for _, f := range flags {
			if a == f {
				return true
			}
		}
	}
	return false
}

func bundles(args []string, dir string) bool {
	for i, a := range args {
		if strings.HasPrefix(a, "--add-data="+dir) {
			return true
		}
		if a == "--add-data" && i+1 < len(args) && strings.HasPrefix(args[i+1], dir) {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
