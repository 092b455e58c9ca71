package source

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const hello = `"""Say hello."""


def main():
    print("hello")


if __name__ == "__main__":
    main()
`

func TestValidateAcceptsSource(t *testing.T) {
	path := writeTempFile(t, "hello.py", hello)
	require.True(t, Validate(path))
	require.NoError(t, New().Check(context.Background(), path))
}

func TestCheckRejections(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "ok.py"), []byte("x = 1\n"), 0o644))

	cases := []struct {
		name string
		path string
		want error
	}{
		{"missing", filepath.Join(dir, "nope.py"), ErrNotExist},
		{"empty", "", ErrNotExist},
		{"extension", writeTempFile(t, "notes.txt", "x = 1\n"), ErrExtension},
		{"traversal", sub + "/../pkg/ok.py", ErrUnsafePath},
		{"double slash", sub + "//ok.py", ErrUnsafePath},
		{"backslash", sub + `\ok.py`, ErrUnsafePath},
		{"directory", sub + ".py", ErrNotExist},
		{"syntax", writeTempFile(t, "bad.py", "def broken(:\n"), ErrSyntax},
		{"encoding", writeTempFile(t, "latin.py", "x = '\xe9'\n"), ErrEncoding},
	}
	v := New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Check(context.Background(), tc.path)
			require.ErrorIs(t, err, tc.want)
			require.False(t, v.Validate(tc.path))
		})
	}
}

func TestCheckRejectsDirectoryWithExtension(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "weird.py")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.ErrorIs(t, New().Check(context.Background(), dir), ErrNotFile)
}

func TestCheckSizeCeiling(t *testing.T) {
	path := writeTempFile(t, "big.py", "x = 1\n"+strings.Repeat("#", 64)+"\n")
	v := New()
	v.MaxSize = 16
	require.ErrorIs(t, v.Check(context.Background(), path), ErrTooLarge)

	v.MaxSize = 1 << 10
	require.NoError(t, v.Check(context.Background(), path))
}

func TestCheckPathSkipsSyntax(t *testing.T) {
	path := writeTempFile(t, "bad.py", "print 'py2'\n")
	v := New()
	require.NoError(t, v.CheckPath(path))
	require.ErrorIs(t, v.Check(context.Background(), path), ErrSyntax)
}

func TestPywExtension(t *testing.T) {
	path := writeTempFile(t, "gui.pyw", "import tkinter\n")
	require.True(t, Validate(path))
}

func TestResolveFallsBackWithoutInterpreter(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	require.Equal(t, Builtin{}, Resolve("python3"))
}

func TestResolvePrefersInterpreterOnPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script interpreter")
	}
	dir := t.TempDir()
	python := filepath.Join(dir, "python3")
	require.NoError(t, os.WriteFile(python, []byte("#!/bin/sh\necho \"SyntaxError: invalid syntax\" >&2\nexit 1\n"), 0o755))
	t.Setenv("PATH", dir)

	checker := Resolve("")
	require.Equal(t, Interpreter{Python: python}, checker)

	v := New()
	v.Syntax = checker
	err := v.Check(context.Background(), writeTempFile(t, "app.py", "x = 1\n"))
	require.ErrorIs(t, err, ErrSyntax)
	require.Contains(t, err.Error(), "SyntaxError: invalid syntax")
}

func TestCheckAcceptsCleanAbsolutePath(t *testing.T) {
	path, err := filepath.Abs(writeTempFile(t, "tool.py", "x = 1\n"))
	require.NoError(t, err)
	require.NoError(t, New().CheckPath(path))
}
