package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireConsistent(t *testing.T, res *BuildResult) {
	t.Helper()
	require.NotNil(t, res)
	assert.Equal(t, res.Status == Success, res.Success, "success flag must follow status")
	assert.True(t, res.Status == Success || res.Status == Failed, "unexpected result status %s", res.Status)
	if res.Success {
		assert.NotEmpty(t, res.OutputPath)
		assert.Empty(t, res.Error)
	} else {
		assert.NotEmpty(t, res.Error)
		assert.Empty(t, res.OutputPath)
	}
}

func TestRunBinarySuccess(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "hello.py", helloSource)
	r := f.runner()

	res := r.Run(context.Background(), NewJob(src, FormatBinary))
	requireConsistent(t, res)
	require.True(t, res.Success, res.Error)

	assert.Equal(t, filepath.Join(f.dist, "hello"), res.OutputPath)
	assert.FileExists(t, res.OutputPath)
	assert.Equal(t, Success, r.Status())
	assert.Contains(t, res.Log, "6.3.0")
	assert.Contains(t, res.Log, "--onefile")
	assert.Contains(t, res.Log, "building "+src)
	assert.Equal(t, 1, f.invocations(t))
}

func TestRunUnsupportedFormatNeverInvokesBackend(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "hello.py", helloSource)
	r := f.runner()

	for _, format := range []Format{FormatApp, FormatExe} {
		res := r.Run(context.Background(), NewJob(src, format))
		requireConsistent(t, res)
		assert.Equal(t, KindUnsupportedFormat, res.Kind)
		assert.Contains(t, res.Error, "linux")
		assert.Equal(t, Failed, r.Status())
	}
	assert.Equal(t, 0, f.invocations(t))
}

func TestRunMissingBackend(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "hello.py", helloSource)
	r := f.runner()
	r.Backend = filepath.Join(f.dir, "does-not-exist")

	res := r.Run(context.Background(), NewJob(src, FormatBinary))
	requireConsistent(t, res)
	assert.Equal(t, KindToolUnavailable, res.Kind)
}

func TestRunInvalidSource(t *testing.T) {
	f := newFixture(t)
	r := f.runner()

	cases := map[string]string{
		"broken":  f.source(t, "broken.py", "def main(:\n    pass\n"),
		"missing": filepath.Join(f.dir, "app", "nope.py"),
		"ext":     f.source(t, "notes.txt", "hello\n"),
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			res := r.Run(context.Background(), NewJob(path, FormatBinary))
			requireConsistent(t, res)
			assert.Equal(t, KindInputInvalid, res.Kind)
		})
	}
	assert.Equal(t, 0, f.invocations(t))
}

func TestRunNonZeroExit(t *testing.T) {
	f := newFixture(t)
	r := f.runner()

	res := r.Run(context.Background(), NewJob(f.source(t, "fail.py", helloSource), FormatBinary))
	requireConsistent(t, res)
	assert.Equal(t, KindNonZeroExit, res.Kind)
	assert.Contains(t, res.Error, "boom on stderr")
	assert.Contains(t, res.Log, "boom on stderr")

	res = r.Run(context.Background(), NewJob(f.source(t, "silent.py", helloSource), FormatBinary))
	requireConsistent(t, res)
	assert.Equal(t, KindNonZeroExit, res.Kind)
	assert.Equal(t, "backend exited with status 3", res.Error)
}

func TestRunTimeout(t *testing.T) {
	f := newFixture(t)
	r := f.runner()
	src := f.source(t, "hang.py", helloSource)

	start := time.Now()
	res := r.Run(context.Background(), NewJob(src, FormatBinary, WithTimeout(time.Second)))
	requireConsistent(t, res)
	assert.Equal(t, KindTimeout, res.Kind)
	assert.Contains(t, res.Error, "timed out")
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, Failed, r.Status())
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	r := f.runner()
	src := f.source(t, "hang.py", helloSource)

	assert.False(t, r.Cancel(), "nothing running")

	results := make(chan *BuildResult, 1)
	go func() { results <- r.Run(context.Background(), NewJob(src, FormatBinary)) }()

	require.Eventually(t, func() bool { return r.Status() == Running }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, r.Cancel())

	select {
	case res := <-results:
		requireConsistent(t, res)
		assert.Equal(t, KindCancelled, res.Kind)
		assert.Equal(t, Failed, res.Status)
		assert.Equal(t, Cancelled, r.Status())
	case <-time.After(10 * time.Second):
		t.Fatal("cancelled build did not return")
	}
	assert.False(t, r.Cancel(), "cancel after completion is a no-op")
}

func TestRunContextCancel(t *testing.T) {
	f := newFixture(t)
	r := f.runner()
	src := f.source(t, "hang.py", helloSource)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for r.Status() != Running {
			time.Sleep(10 * time.Millisecond)
		}
		cancel()
	}()
	res := r.Run(ctx, NewJob(src, FormatBinary))
	requireConsistent(t, res)
	assert.Equal(t, KindCancelled, res.Kind)
}

func TestRunBacksUpExistingArtifact(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "hello.py", helloSource)
	r := f.runner()
	r.Now = func() time.Time { return time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC) }

	require.NoError(t, os.MkdirAll(f.dist, 0o755))
	old := filepath.Join(f.dist, "hello")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o755))

	res := r.Run(context.Background(), NewJob(src, FormatBinary))
	require.True(t, res.Success, res.Error)

	backup := old + ".bak_20260115_103000"
	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	assert.Contains(t, res.Log, backup)
}

func TestRunSpecFileWithHiddenImports(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "hello.py", helloSource)
	spec := filepath.Join(f.dir, "app", "hello.spec")
	require.NoError(t, os.WriteFile(spec, []byte("a = Analysis(['hello.py'], hiddenimports=[])\n"), 0o644))

	r := f.runner()
	res := r.Run(context.Background(), NewJob(src, FormatBinary, WithSpecFile(spec), WithHiddenImports("yaml")))
	require.True(t, res.Success, res.Error)
	assert.NotContains(t, res.Log, "--onefile")

	data, err := os.ReadFile(spec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `hiddenimports=["yaml"]`)
}

func TestRunnerIsReusable(t *testing.T) {
	f := newFixture(t)
	r := f.runner()

	res := r.Run(context.Background(), NewJob(f.source(t, "fail.py", helloSource), FormatBinary))
	assert.False(t, res.Success)
	res = r.Run(context.Background(), NewJob(f.source(t, "hello.py", helloSource), FormatBinary))
	assert.True(t, res.Success, res.Error)
	assert.Equal(t, Success, r.Status())
	assert.Equal(t, 2, f.invocations(t))
}

func TestPreflightWarningsReachLog(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "hello.py", helloSource)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "app", "speedups.pyx"), []byte("# cython\n"), 0o644))

	r := f.runner()
	r.Preflight = &Preflight{
		Backend: f.backend,
		GOOS:    "linux",
		LookPath: func(name string) (string, error) {
			if name == f.backend {
				return name, nil
			}
			return "", os.ErrNotExist
		},
		LibDirs: []string{},
	}
	res := r.Run(context.Background(), NewJob(src, FormatBinary, WithExtraArgs("--windowed")))
	require.True(t, res.Success, res.Error)
	for _, want := range []string{"Tk GUI library", "native compiler", "ldd", "python interpreter"} {
		assert.True(t, strings.Contains(res.Log, want), "log missing %q warning", want)
	}
}

type noSpecEngine struct{ pyinstaller }

func (noSpecEngine) Name() string            { return "nospec" }
func (noSpecEngine) SupportsSpecFiles() bool { return false }

func TestRunRejectsSpecFileForEngineWithoutSupport(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "hello.py", helloSource)
	spec := filepath.Join(f.dir, "app", "hello.spec")
	require.NoError(t, os.WriteFile(spec, []byte("hiddenimports=[]\n"), 0o644))

	r := f.runner()
	r.Engine = noSpecEngine{}
	res := r.Run(context.Background(), NewJob(src, FormatBinary, WithSpecFile(spec)))
	requireConsistent(t, res)
	assert.Equal(t, KindInputInvalid, res.Kind)
	assert.Equal(t, 0, f.invocations(t))
}

func TestCancelDuringPreflightSkipsBackend(t *testing.T) {
	f := newFixture(t)
	marker := filepath.Join(f.dir, "probing")
	slowVersion := strings.Replace(fakeBackend, `  echo "6.3.0"`, "  touch "+marker+"\n  sleep 1\n  echo \"6.3.0\"", 1)
	require.NoError(t, os.WriteFile(f.backend, []byte(slowVersion), 0o755))

	r := f.runner()
	src := f.source(t, "hello.py", helloSource)
	results := make(chan *BuildResult, 1)
	go func() { results <- r.Run(context.Background(), NewJob(src, FormatBinary)) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, Pending, r.Status())
	assert.False(t, r.Cancel(), "no backend process yet")

	select {
	case res := <-results:
		requireConsistent(t, res)
		assert.Equal(t, KindCancelled, res.Kind)
		assert.Equal(t, Cancelled, r.Status())
	case <-time.After(10 * time.Second):
		t.Fatal("cancelled build did not return")
	}
	assert.Equal(t, 0, f.invocations(t))

	res := r.Run(context.Background(), NewJob(src, FormatBinary))
	assert.True(t, res.Success, "an earlier cancel does not carry over: %s", res.Error)
}

func TestRunPrefixesLiveOutput(t *testing.T) {
	f := newFixture(t)
	r := f.runner()
	var live syncBuffer
	r.Stdout = &live
	r.PrefixOutput = true

	res := r.Run(context.Background(), NewJob(f.source(t, "hello.py", helloSource), FormatBinary))
	require.True(t, res.Success, res.Error)
	for _, line := range strings.Split(strings.TrimSpace(live.String()), "\n") {
		assert.True(t, strings.HasPrefix(line, "[hello.py] "), "unprefixed line %q", line)
	}
	assert.Contains(t, live.String(), "[hello.py] 123 INFO: building")
	assert.NotContains(t, res.Log, "[hello.py]", "captured log stays unprefixed")
}

func TestPrefixWriterHoldsPartialLines(t *testing.T) {
	var out strings.Builder
	w := newPrefixWriter(&out, "[a.py] ")
	_, _ = w.Write([]byte("one\ntw"))
	_, _ = w.Write([]byte("o\nthree"))
	assert.Equal(t, "[a.py] one\n[a.py] two\n", out.String())
	w.Flush()
	assert.Equal(t, "[a.py] one\n[a.py] two\n[a.py] three\n", out.String())
}
