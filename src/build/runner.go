package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sofmeright/packwright/src/ctxlog"
	"github.com/sofmeright/packwright/src/retention"
	"github.com/sofmeright/packwright/src/source"
)

// stderrTail bounds how much backend stderr ends up in a result's error.
const stderrTail = 20

// Runner drives the packaging backend for one job at a time. Status and
// Cancel may be called from any goroutine while Run is in progress.
type Runner struct {
	Backend   string
	OutputDir string
	GOOS      string
	Timeout   time.Duration
	// KillGrace bounds how long output pipes are drained after the
	// backend is killed.
	KillGrace time.Duration
	Env       []string
	Verbose   bool
	// Stdout receives a live copy of backend output when set.
	Stdout io.Writer
	// PrefixOutput starts every mirrored line with the job's file name so
	// concurrent jobs sharing Stdout stay readable.
	PrefixOutput bool
	Stderr    io.Writer
	Engine    Engine
	Source    *source.Validator
	Preflight *Preflight
	Locks     *PathLocks
	Now       func() time.Time

	// KeepBackups prunes older backups of the artifact after each new one.
	KeepBackups retention.Policy

	mu              sync.Mutex
	busy            bool
	status          Status
	proc            *os.Process
	cancelRequested bool
}

// NewRunner creates a runner for backend writing artifacts to outputDir.
func NewRunner(backend, outputDir string) *Runner {
	return &Runner{
		Backend:   backend,
		OutputDir: outputDir,
		GOOS:      runtime.GOOS,
		Stderr:    os.Stderr,
	}
}

// Status returns the state of the current or most recent job.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Cancel kills the running backend and everything it spawned. It returns
// false when no backend process is running. A cancel that arrives while a
// job is still in preflight is remembered and the backend is never spawned.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == Running && r.proc != nil {
		r.cancelRequested = true
		_ = killProcessTree(r.proc)
		return true
	}
	if r.busy && r.status == Pending {
		r.cancelRequested = true
	}
	return false
}

// cancelledEarly reports a cancel recorded before the backend started.
func (r *Runner) cancelledEarly() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status == Pending && r.cancelRequested
}

// Run executes job and always returns a result; failures are reported in
// it rather than as an error.
func (r *Runner) Run(ctx context.Context, job BuildJob) (res *BuildResult) {
	start := time.Now()
	ctx = ctxlog.With(ctx, "job", job.ID, "source", job.Source, "format", string(job.Format))
	log := ctxlog.FromContext(ctx)
	var preamble strings.Builder

	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return Failure(job, Errorf(KindUnexpected, "runner is already executing a job"), "", 0)
	}
	r.busy = true
	r.status = Pending
	r.cancelRequested = false
	r.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			res = Failure(job, Errorf(KindUnexpected, "unexpected error: %v", p), preamble.String(), time.Since(start))
		}
		final := res.Status
		if res.Kind == KindCancelled {
			final = Cancelled
		}
		r.mu.Lock()
		r.status = final
		r.busy = false
		r.proc = nil
		r.mu.Unlock()
		log.Info("build finished", "status", final.String(), "kind", res.Kind.String(), "duration", res.Duration.Round(time.Millisecond))
	}()

	fail := func(err error) *BuildResult {
		log.Warn("build failed", "error", err)
		return Failure(job, err, preamble.String(), time.Since(start))
	}

	if err := ctx.Err(); err != nil {
		return fail(Wrap(KindCancelled, err, "build cancelled"))
	}

	// Preflight.
	pre, err := r.preflight().Run(ctx, job)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(&preamble, "Backend: %s %s\n", r.Backend, pre.BackendVersion)
	if pre.Version != nil {
		log.Debug("backend detected", "version", pre.Version.String())
	}
	for _, w := range pre.Warnings {
		fmt.Fprintf(&preamble, "WARNING: %s\n", w)
		log.Warn(w)
	}

	// Inputs.
	if err := r.source().Check(ctx, job.Source); err != nil {
		return fail(Wrap(KindInputInvalid, err, "invalid source %q", job.Source))
	}
	if !job.Format.Known() {
		return fail(Errorf(KindInputInvalid, "unknown format %q", job.Format))
	}
	goos := r.goos()
	if !job.Format.SupportedOn(goos) {
		return fail(Errorf(KindUnsupportedFormat, "format %q cannot be built on %s (supported: %s)",
			job.Format, goos, joinFormats(SupportedFormats(goos))))
	}

	eng := r.engine()
	if job.SpecFile != "" && !eng.SupportsSpecFiles() {
		return fail(Errorf(KindInputInvalid, "engine %s does not build from spec files", eng.Name()))
	}

	run := job
	run.ExtraArgs = append([]string(nil), job.ExtraArgs...)
	if run.Source, err = filepath.Abs(job.Source); err != nil {
		return fail(Wrap(KindInputInvalid, err, "resolving source"))
	}
	if job.SpecFile != "" {
		if run.SpecFile, err = filepath.Abs(job.SpecFile); err != nil {
			return fail(Wrap(KindInputInvalid, err, "resolving spec file"))
		}
		if _, err := os.Stat(run.SpecFile); err != nil {
			return fail(Wrap(KindInputInvalid, err, "spec file"))
		}
		if err := PatchSpecHiddenImports(run.SpecFile, job.HiddenImports); err != nil {
			return fail(Wrap(KindInputInvalid, err, "patching hidden imports"))
		}
	}

	// Command and artifact location.
	dist, err := filepath.Abs(r.OutputDir)
	if err != nil {
		return fail(Wrap(KindUnexpected, err, "resolving output directory"))
	}
	if err := os.MkdirAll(dist, 0o755); err != nil {
		return fail(Wrap(KindUnexpected, err, "creating output directory"))
	}
	args := eng.Args(run, dist, goos)
	outPath := eng.OutputPath(dist, run, goos)
	line := CommandLine(r.Backend, args)
	fmt.Fprintf(&preamble, "$ %s\n", line)
	if r.Verbose && r.Stderr != nil {
		fmt.Fprintf(r.Stderr, "exec: %s\n", line)
	}

	if r.Locks != nil {
		unlock := r.Locks.Lock(outPath)
		defer unlock()
	}
	if r.cancelledEarly() {
		return fail(Errorf(KindCancelled, "build cancelled before the backend started"))
	}
	backup, err := BackupExisting(outPath, r.now())
	if err != nil {
		return fail(Wrap(KindBackupFailed, err, "backing up existing artifact %s", outPath))
	}
	if backup != "" {
		fmt.Fprintf(&preamble, "Existing artifact moved to %s\n", backup)
		log.Info("existing artifact backed up", "backup", backup)
		r.pruneBackups(ctx, outPath)
	}

	log.Info("build started", "output", outPath)
	output, err := r.execute(ctx, pre.BackendPath, args, r.timeout(job), filepath.Base(job.Source))
	fullLog := preamble.String() + output
	if err != nil {
		log.Warn("build failed", "error", err)
		return Failure(job, err, fullLog, time.Since(start))
	}
	return succeeded(job, outPath, fullLog, time.Since(start))
}

// pruneBackups applies KeepBackups to outPath's backups. Failures are
// logged and never fail the build.
func (r *Runner) pruneBackups(ctx context.Context, outPath string) {
	if !r.KeepBackups.Active() {
		return
	}
	log := ctxlog.FromContext(ctx)
	res, err := retention.Apply(ctx, BackupStore{Path: outPath}, r.KeepBackups)
	if err != nil {
		log.Warn("backup pruning failed", "output", outPath, "error", err)
		return
	}
	for _, name := range res.Deleted {
		log.Debug("pruned backup", "backup", name)
	}
	for _, err := range res.Errors {
		log.Warn("backup pruning failed", "output", outPath, "error", err)
	}
}

// execute runs the backend and classifies how it ended.
func (r *Runner) execute(ctx context.Context, path string, args []string, timeout time.Duration, label string) (string, error) {
	var combined, stderr syncBuffer
	stdout := io.Writer(&combined)
	if r.Stdout != nil {
		live := r.Stdout
		if r.PrefixOutput {
			pw := newPrefixWriter(r.Stdout, "["+label+"] ")
			defer pw.Flush()
			live = pw
		}
		stdout = io.MultiWriter(&combined, live)
	}

	cmd := exec.Command(path, args...)
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stdout, &stderr)
	cmd.WaitDelay = r.killGrace()
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	setProcessGroup(cmd)

	r.mu.Lock()
	if r.cancelRequested {
		r.mu.Unlock()
		return "", Errorf(KindCancelled, "build cancelled before the backend started")
	}
	if err := cmd.Start(); err != nil {
		r.mu.Unlock()
		return "", Wrap(KindToolUnavailable, err, "starting backend")
	}
	r.proc = cmd.Process
	r.status = Running
	r.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		r.mu.Lock()
		r.proc = nil
		r.mu.Unlock()
		done <- err
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	var stopped ErrorKind
	select {
	case waitErr = <-done:
	case <-timer.C:
		stopped = KindTimeout
		_ = killProcessTree(cmd.Process)
		waitErr = <-done
	case <-ctx.Done():
		stopped = KindCancelled
		_ = killProcessTree(cmd.Process)
		waitErr = <-done
	}

	r.mu.Lock()
	cancelled := r.cancelRequested
	r.mu.Unlock()

	out := combined.String()
	switch {
	case stopped == KindTimeout:
		return out, Errorf(KindTimeout, "build timed out after %s", timeout)
	case stopped == KindCancelled:
		return out, Wrap(KindCancelled, ctx.Err(), "build cancelled")
	case waitErr == nil:
		return out, nil
	case cancelled:
		return out, Errorf(KindCancelled, "build cancelled")
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if msg := tail(stderr.String(), stderrTail); msg != "" {
			return out, Errorf(KindNonZeroExit, "%s", msg)
		}
		return out, Errorf(KindNonZeroExit, "backend exited with status %d", exitErr.ExitCode())
	}
	if errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		return out, nil
	}
	return out, Wrap(KindUnexpected, waitErr, "waiting for backend")
}

func (r *Runner) preflight() *Preflight {
	if r.Preflight != nil {
		return r.Preflight
	}
	return &Preflight{Backend: r.Backend, GOOS: r.goos()}
}

func (r *Runner) engine() Engine {
	if r.Engine != nil {
		return r.Engine
	}
	return pyinstaller{}
}

func (r *Runner) source() *source.Validator {
	if r.Source != nil {
		return r.Source
	}
	return source.New()
}

func (r *Runner) goos() string {
	if r.GOOS != "" {
		return r.GOOS
	}
	return runtime.GOOS
}

func (r *Runner) timeout(job BuildJob) time.Duration {
	switch {
	case job.Timeout > 0:
		return job.Timeout
	case r.Timeout > 0:
		return r.Timeout
	default:
		return DefaultTimeout
	}
}

func (r *Runner) killGrace() time.Duration {
	if r.KillGrace > 0 {
		return r.KillGrace
	}
	return 5 * time.Second
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func joinFormats(fs []Format) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes os/exec
// makes when stdout and stderr share a writer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
