package cmd

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/packwright/src/build"
	"github.com/sofmeright/packwright/src/config"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packwright.yml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  path: /opt/pyinstaller\nbuild:\n  timeout: 2m\n"), 0o644))

	c, warnings, err := loadConfig(path, filepath.Join(dir, "missing.env"), envMap(map[string]string{
		"PACKWRIGHT_OUTPUT_DIR":      "out",
		"PACKWRIGHT_MAX_CONCURRENCY": "many",
	}))
	require.NoError(t, err)
	assert.Equal(t, "/opt/pyinstaller", c.Backend.Path)
	assert.Equal(t, 2*time.Minute, c.Build.Timeout)
	assert.Equal(t, "out", c.Build.OutputDir)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "MAX_CONCURRENCY")
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [\n"), 0o644))
	_, _, err := loadConfig(path, "", envMap(nil))
	assert.ErrorContains(t, err, "loading config")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, config.LogConfig{Level: "info", Format: "json"}, false).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	newLogger(&buf, config.LogConfig{Level: "error", Format: "text"}, false).Info("quiet")
	assert.Empty(t, buf.String())
}

func TestStructureValidatorOverrides(t *testing.T) {
	c := config.Defaults()
	c.Validate.Required = []string{"app.py"}
	c.Validate.EntryCandidates = []string{"app.py"}
	c.Validate.SecretScan = false
	v := newStructureValidator(c)
	require.Len(t, v.Checklist.Required, 1)
	assert.Equal(t, "app.py", string(v.Checklist.Required[0]))
	assert.Equal(t, []string{"app.py"}, v.EntryCandidates)
	assert.False(t, v.SecretScan)
	assert.NotEmpty(t, v.Checklist.Recommended)
}

func TestRunnerFactoryAppliesConfig(t *testing.T) {
	c := config.Defaults()
	c.Backend.Path = "/usr/bin/pyinstaller"
	c.Build.OutputDir = "artifacts"
	eng, err := newEngine(c, "nuitka")
	require.NoError(t, err)

	r := newRunnerFactory(c, eng, nil)()
	assert.Equal(t, "/usr/bin/pyinstaller", r.Backend)
	assert.Equal(t, "artifacts", r.OutputDir)
	assert.Equal(t, "nuitka", r.Engine.Name())
	assert.Equal(t, c.Backend.ProbeTimeout, r.Preflight.ProbeTimeout)

	_, err = newEngine(c, "py2exe")
	assert.Error(t, err)
}

func TestRunnerFactoryUsesEngineExecutable(t *testing.T) {
	c := config.Defaults()
	for _, name := range []string{"pyinstaller", "nuitka"} {
		eng, err := newEngine(c, name)
		require.NoError(t, err)
		r := newRunnerFactory(c, eng, nil)()
		assert.Equal(t, name, r.Backend)
		assert.Equal(t, name, r.Preflight.Backend)
	}
}

func TestCollectJobs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.py", "b.pyw", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x = 1\n"), 0o644))
	}
	jobs, err := collectJobs([]string{dir, "extra.py"}, build.FormatBinary, false, nil)
	require.NoError(t, err)
	var sources []string
	for _, j := range jobs {
		sources = append(sources, filepath.Base(j.Source))
		assert.Equal(t, build.FormatBinary, j.Format)
	}
	assert.Equal(t, []string{"a.py", "b.pyw", "extra.py"}, sources)
}

func TestInitThenValidate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"init", root, "--profile", "console"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "created console project")

	rootCmd.SetArgs([]string{"validate", root})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "score 100/100")
}
