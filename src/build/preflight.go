package build

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Preflight checks the host before a job is attempted. A missing backend
// is fatal; everything else is reported as a warning.
type Preflight struct {
	Backend      string
	GOOS         string
	ProbeTimeout time.Duration
	// LookPath resolves executables; defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// LibDirs are searched for the Tk shared library on unix hosts.
	LibDirs []string
}

// PreflightReport is what a successful preflight learned.
type PreflightReport struct {
	BackendPath    string
	BackendVersion string
	Version        *semver.Version
	Warnings       []string
}

var defaultLibDirs = []string{
	"/usr/lib", "/usr/lib64", "/usr/local/lib",
	"/usr/lib/x86_64-linux-gnu", "/usr/lib/aarch64-linux-gnu",
	"/opt/homebrew/lib", "/usr/local/opt/tcl-tk/lib",
}

var nativeSourceExts = map[string]bool{".pyx": true, ".pxd": true, ".c": true, ".cpp": true, ".cc": true}

// Run checks the backend and the host capabilities job needs.
func (p *Preflight) Run(ctx context.Context, job BuildJob) (*PreflightReport, error) {
	path, err := p.lookPath(p.Backend)
	if err != nil {
		return nil, Wrap(KindToolUnavailable, err, "packaging backend %q not found", p.Backend)
	}

	raw, err := p.probeVersion(ctx, path)
	if err != nil {
		return nil, Wrap(KindToolUnavailable, err, "packaging backend %q did not report a version", p.Backend)
	}
	rep := &PreflightReport{BackendPath: path, BackendVersion: raw}
	if v, err := semver.NewVersion(raw); err == nil {
		rep.Version = v
	}

	if p.GOOS != "windows" && windowed(job) && !p.hasTk() {
		rep.Warnings = append(rep.Warnings, "Tk GUI library not found; windowed builds may fail at runtime")
	}
	if needsCompiler(job) && !p.hasAny("gcc", "clang", "cc", "cl") {
		rep.Warnings = append(rep.Warnings, "no native compiler (gcc, clang, cc, cl) found; native extensions cannot be built")
	}
	if p.GOOS == "linux" && !p.hasAny("ldd") {
		rep.Warnings = append(rep.Warnings, "ldd not found; shared library dependencies cannot be collected")
	}
	if !p.hasAny("python3", "python") {
		rep.Warnings = append(rep.Warnings, "no python interpreter found on PATH")
	}
	return rep, nil
}

func (p *Preflight) probeVersion(ctx context.Context, path string) (string, error) {
	timeout := p.ProbeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "--version")
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out.String()), "\n")
	return strings.TrimSpace(line), nil
}

func (p *Preflight) lookPath(name string) (string, error) {
	if p.LookPath != nil {
		return p.LookPath(name)
	}
	return exec.LookPath(name)
}

func (p *Preflight) hasAny(names ...string) bool {
	for _, n := range names {
		if _, err := p.lookPath(n); err == nil {
			return true
		}
	}
	return false
}

func (p *Preflight) hasTk() bool {
	if p.hasAny("wish") {
		return true
	}
	dirs := p.LibDirs
	if dirs == nil {
		dirs = defaultLibDirs
	}
	for _, dir := range dirs {
		for _, pattern := range []string{"libtk*.so*", "libtk*.dylib"} {
			if m, _ := filepath.Glob(filepath.Join(dir, pattern)); len(m) > 0 {
				return true
			}
		}
	}
	return false
}

// windowed reports whether the job produces a GUI artifact.
func windowed(job BuildJob) bool {
	if job.Format == FormatExe || job.Format == FormatApp {
		return true
	}
	for _, a := range job.ExtraArgs {
		switch a {
		case "--windowed", "--noconsole", "-w":
			return true
		}
	}
	return false
}

// needsCompiler reports whether native sources sit next to the entry file.
func needsCompiler(job BuildJob) bool {
	for _, a := range job.ExtraArgs {
		if strings.Contains(strings.ToLower(a), "cython") {
			return true
		}
	}
	entries, err := os.ReadDir(filepath.Dir(job.Source))
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && nativeSourceExts[strings.ToLower(filepath.Ext(e.Name()))] {
			return true
		}
	}
	return false
}
