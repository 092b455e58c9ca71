package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/packwright/src/retention"
)

func TestParseBackupStamp(t *testing.T) {
	base, ok := parseBackupStamp("20260115_103000")
	require.True(t, ok)
	assert.Equal(t, 2026, base.Year())

	second, ok := parseBackupStamp("20260115_103000_2")
	require.True(t, ok)
	assert.True(t, second.After(base))

	_, ok = parseBackupStamp("garbage")
	assert.False(t, ok)
	_, ok = parseBackupStamp("20260115_103000_x")
	assert.False(t, ok)
}

func TestBackupStorePrunesOldest(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "hello")
	for _, name := range []string{
		"hello.bak_20260101_000000",
		"hello.bak_20260102_000000",
		"hello.bak_20260103_000000",
		"other.bak_20250101_000000",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	store := BackupStore{Path: out}
	items, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 3)

	res, err := retention.Apply(context.Background(), store, retention.Policy{KeepLast: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello.bak_20260101_000000"}, res.Deleted)
	assert.NoFileExists(t, filepath.Join(dir, "hello.bak_20260101_000000"))
	assert.FileExists(t, filepath.Join(dir, "other.bak_20250101_000000"))
}

func TestRunnerPrunesBackups(t *testing.T) {
	fx := newFixture(t)
	src := fx.source(t, "hello.py", helloSource)
	r := fx.runner()
	r.KeepBackups = retention.Policy{KeepLast: 1}

	stamps := []time.Time{
		time.Date(2026, 1, 15, 10, 30, 0, 0, time.Local),
		time.Date(2026, 1, 15, 10, 31, 0, 0, time.Local),
		time.Date(2026, 1, 15, 10, 32, 0, 0, time.Local),
	}
	for _, now := range stamps {
		r.Now = func() time.Time { return now }
		res := r.Run(context.Background(), NewJob(src, FormatBinary))
		require.True(t, res.Success, res.Error)
	}

	matches, err := filepath.Glob(filepath.Join(fx.dist, "hello.bak_*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "hello.bak_20260115_103200", filepath.Base(matches[0]))
}
