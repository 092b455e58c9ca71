// Package engines holds packaging engines beyond the built-in PyInstaller
// one. Importing it registers them.
package engines

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sofmeright/packwright/src/build"
)

func init() {
	build.Register("nuitka", func() build.Engine { return &nuitkaEngine{} })
}

// nuitkaEngine compiles the entry script with Nuitka in onefile mode.
type nuitkaEngine struct{}

func (e *nuitkaEngine) Name() string { return "nuitka" }

func (e *nuitkaEngine) Executable() string { return "nuitka" }

func (e *nuitkaEngine) SupportsSpecFiles() bool { return false }

func (e *nuitkaEngine) Args(job build.BuildJob, distPath, goos string) []string {
	args := []string{
		"--onefile",
		"--assume-yes-for-downloads",
		"--remove-output",
		"--output-dir=" + distPath,
		"--output-filename=" + outputName(job.Source, goos),
	}
	switch job.Format {
	case build.FormatExe:
		args = append(args, consoleOff)
	case build.FormatApp:
		args = append(args, appBundle)
	}
	for _, a := range translateExtra(job.ExtraArgs, goos) {
		if !slices.Contains(args, a) {
			args = append(args, a)
		}
	}
	return append(args, job.Source)
}

const (
	consoleOff = "--windows-console-mode=disable"
	appBundle  = "--macos-create-app-bundle"
)

func (e *nuitkaEngine) OutputPath(distPath string, job build.BuildJob, goos string) string {
	return build.OutputPath(distPath, job.Source, job.Format, goos)
}

func outputName(source, goos string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if goos == "windows" {
		return stem + ".exe"
	}
	return stem
}

// translateExtra maps PyInstaller-style flags onto Nuitka options. Resource
// flags become data inclusion and a windowed request becomes the platform's
// console-less mode. --strip has no Nuitka counterpart and is dropped.
// Anything else is passed through untouched.
func translateExtra(extra []string, goos string) []string {
	var out []string
	for i := 0; i < len(extra); i++ {
		a := extra[i]
		flag, val, inline := strings.Cut(a, "=")
		switch flag {
		case "--strip", "-s":
			continue
		case "--windowed", "--noconsole", "-w":
			switch goos {
			case "windows":
				out = append(out, consoleOff)
			case "darwin":
				out = append(out, appBundle)
			}
			continue
		case "--add-data", "--add-binary":
		default:
			out = append(out, a)
			continue
		}
		if !inline {
			if i+1 >= len(extra) {
				out = append(out, a)
				continue
			}
			i++
			val = extra[i]
		}
		out = append(out, includeData(val))
	}
	return out
}

func includeData(val string) string {
	src, dst := build.SplitResource(val)
	if dst == "" {
		dst = "."
	}
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		return "--include-data-dir=" + src + "=" + dst
	}
	if dst == "." {
		dst = filepath.Base(src)
	} else {
		dst = filepath.ToSlash(filepath.Join(dst, filepath.Base(src)))
	}
	return "--include-data-files=" + src + "=" + dst
}
