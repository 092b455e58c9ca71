package batch

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/packwright/src/build"
	"github.com/sofmeright/packwright/src/source"
)

// fakeBackend records how many builds are alive whenever one starts.
const fakeBackend = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "6.3.0"
  exit 0
fi
dist=""
entry=""
for a in "$@"; do
  case "$a" in
    --distpath=*) dist="${a#--distpath=}" ;;
  esac
  entry="$a"
done
echo "$entry" >> "$FAKE_STATE/invocations"
touch "$FAKE_STATE/alive.$$"
ls "$FAKE_STATE" | grep -c '^alive\.' >> "$FAKE_STATE/counts"
sleep 0.3
rm -f "$FAKE_STATE/alive.$$"
name=$(basename "$entry" .py)
mkdir -p "$dist"
echo bin > "$dist/$name"
`

const script = `"""Tool."""


def main():
    return 0


if __name__ == "__main__":
    main()
`

func writeTempFile(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type env struct {
	dir, backend, dist, state string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake backend is a shell script")
	}
	dir := t.TempDir()
	e := &env{
		dir:     dir,
		backend: writeTempFile(t, dir, "fake-backend", fakeBackend),
		dist:    filepath.Join(dir, "dist"),
		state:   filepath.Join(dir, "state"),
	}
	require.NoError(t, os.Chmod(e.backend, 0o755))
	require.NoError(t, os.MkdirAll(e.state, 0o755))
	return e
}

func (e *env) orchestrator() *Orchestrator {
	return &Orchestrator{NewRunner: func() Executor {
		r := build.NewRunner(e.backend, e.dist)
		r.GOOS = "linux"
		r.Env = []string{"FAKE_STATE=" + e.state}
		r.Stderr = nil
		return r
	}}
}

func (e *env) lines(t *testing.T, name string) []string {
	t.Helper()
	f, err := os.Open(filepath.Join(e.state, name))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, strings.TrimSpace(sc.Text()))
	}
	return out
}

func TestRunAllBoundsConcurrency(t *testing.T) {
	e := newEnv(t)
	var jobs []build.BuildJob
	for i := 0; i < 5; i++ {
		src := writeTempFile(t, e.dir, "app/tool"+strconv.Itoa(i)+".py", script)
		jobs = append(jobs, build.NewJob(src, build.FormatBinary))
	}

	var calls []int
	res, err := e.orchestrator().RunAll(context.Background(), jobs, 2, func(path string, completed, total int) {
		assert.Equal(t, 5, total)
		calls = append(calls, completed)
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 5, res.Successful)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Len(t, res.Results, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)

	counts := e.lines(t, "counts")
	require.Len(t, counts, 5)
	for _, c := range counts {
		n, err := strconv.Atoi(c)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, 2, "more than two backends alive at once")
	}
}

func TestRunAllInvalidInputsCountAsFailed(t *testing.T) {
	e := newEnv(t)
	good1 := writeTempFile(t, e.dir, "app/one.py", script)
	good2 := writeTempFile(t, e.dir, "app/two.py", script)
	broken := writeTempFile(t, e.dir, "app/broken.py", "def main(:\n")
	missing := filepath.Join(e.dir, "app", "missing.py")

	jobs := []build.BuildJob{
		build.NewJob(good1, build.FormatBinary),
		build.NewJob(broken, build.FormatBinary),
		build.NewJob(good2, build.FormatBinary),
		build.NewJob(missing, build.FormatBinary),
	}
	res, err := e.orchestrator().RunAll(context.Background(), jobs, 3, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, res.Total, res.Successful+res.Failed)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, "completed with 2 failures", res.Status)
	assert.ElementsMatch(t, []string{good1, good2, broken, missing}, res.Paths())
	assert.Equal(t, build.KindInputInvalid, res.Results[broken].Kind)
	assert.Equal(t, build.KindInputInvalid, res.Results[missing].Kind)
	assert.Len(t, e.lines(t, "invocations"), 2, "invalid files never reach the backend")
}

type stubExecutor struct {
	panicOn string
	runs    *atomic.Int32
}

func (s stubExecutor) Run(_ context.Context, job build.BuildJob) *build.BuildResult {
	s.runs.Add(1)
	if filepath.Base(job.Source) == s.panicOn {
		panic("backend wrapper exploded")
	}
	return &build.BuildResult{JobID: job.ID, Source: job.Source, Success: true, Status: build.Success, OutputPath: "/dist/x"}
}

func TestRunAllRecoversPanics(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32
	o := &Orchestrator{NewRunner: func() Executor { return stubExecutor{panicOn: "bad.py", runs: &runs} }}

	jobs := []build.BuildJob{
		build.NewJob(writeTempFile(t, dir, "a.py", script), build.FormatBinary),
		build.NewJob(writeTempFile(t, dir, "bad.py", script), build.FormatBinary),
		build.NewJob(writeTempFile(t, dir, "c.py", script), build.FormatBinary),
	}
	res, err := o.RunAll(context.Background(), jobs, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(3), runs.Load())
	assert.Equal(t, 2, res.Successful)
	assert.Equal(t, 1, res.Failed)
	bad := res.Results[jobs[1].Source]
	require.NotNil(t, bad)
	assert.Equal(t, build.KindUnexpected, bad.Kind)
	assert.Contains(t, bad.Error, "backend wrapper exploded")
	assert.Equal(t, build.Failed, bad.Status)
}

func TestRunAllDropsDuplicateSources(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32
	o := &Orchestrator{NewRunner: func() Executor { return stubExecutor{runs: &runs} }}

	src := writeTempFile(t, dir, "a.py", script)
	jobs := []build.BuildJob{build.NewJob(src, build.FormatBinary), build.NewJob(src, build.FormatBinary)}
	res, err := o.RunAll(context.Background(), jobs, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, jobs[0].ID, res.Results[src].JobID)
}

func TestRunAllEdgeCases(t *testing.T) {
	o := &Orchestrator{NewRunner: func() Executor { return stubExecutor{runs: new(atomic.Int32)} }}

	_, err := o.RunAll(context.Background(), nil, 0, nil)
	assert.ErrorContains(t, err, "at least 1")

	res, err := o.RunAll(context.Background(), nil, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusNoFiles, res.Status)
	assert.Equal(t, 0, res.Total)
}

func TestSummary(t *testing.T) {
	res := &Result{
		Total: 2, Successful: 1, Failed: 1, Status: "completed with 1 failures",
		Duration: 1500 * time.Millisecond,
		Results: map[string]*build.BuildResult{
			"b.py": {Source: "b.py", Error: "backend exited with status 1\nmore"},
			"a.py": {Source: "a.py", Success: true, Status: build.Success, OutputPath: "dist/a"},
		},
	}
	want := "Batch build completed with 1 failures\n" +
		"Total: 2  Successful: 1  Failed: 1  Success rate: 50.0%  Duration: 1.5s\n" +
		"  OK    a.py -> dist/a\n" +
		"  FAIL  b.py: backend exited with status 1\n"
	assert.Equal(t, want, res.Summary())
}

func TestJobsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"main.py", "gui.pyw", "__init__.py", "setup.py", "notes.txt",
		"pkg/worker.py", ".hidden/x.py", "venv/lib.py", "__pycache__/c.py",
	} {
		writeTempFile(t, dir, name, script)
	}

	jobs, err := JobsFromDirectory(dir, build.FormatBinary, false)
	require.NoError(t, err)
	var got []string
	for _, j := range jobs {
		got = append(got, filepath.ToSlash(strings.TrimPrefix(j.Source, dir+string(filepath.Separator))))
		assert.Equal(t, build.FormatBinary, j.Format)
		assert.NotEmpty(t, j.ID)
	}
	assert.Equal(t, []string{"gui.pyw", "main.py"}, got)

	jobs, err = JobsFromDirectory(dir, build.FormatBinary, true, build.WithTimeout(time.Minute))
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, filepath.Join(dir, "pkg", "worker.py"), jobs[2].Source)
	assert.Equal(t, time.Minute, jobs[2].Timeout)

	_, err = JobsFromDirectory(filepath.Join(dir, "main.py"), build.FormatBinary, false)
	assert.Error(t, err)
}

func TestJobsFromDirectoryResolvesRoot(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "tools/report.py", script)
	writeTempFile(t, dir, "other/keep.txt", "")

	jobs, err := JobsFromDirectory(dir+"/other/../tools", build.FormatBinary, false)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, filepath.Join(dir, "tools", "report.py"), jobs[0].Source)
	assert.NoError(t, source.New().Check(context.Background(), jobs[0].Source))
}
