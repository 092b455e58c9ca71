package build

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/sofmeright/packwright/src/source"
)

// fakeBackend stands in for the packaging tool. It answers --version,
// records every build invocation and behaves according to the entry
// file's name: fail*, silent*, hang*, otherwise it writes the artifact.
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
if [ -n "$FAKE_STATE" ]; then
  echo "$*" >> "$FAKE_STATE/invocations"
  touch "$FAKE_STATE/alive.$$"
  ls "$FAKE_STATE" | grep -c '^alive\.' >> "$FAKE_STATE/counts"
fi
echo "123 INFO: building $entry"
case "$(basename "$entry")" in
  fail*) echo "456 ERROR: boom on stderr" >&2; rm -f "$FAKE_STATE/alive.$$"; exit 2 ;;
  silent*) rm -f "$FAKE_STATE/alive.$$"; exit 3 ;;
  hang*) sleep 30 ;;
  slow*) sleep 0.3 ;;
esac
if [ -n "$FAKE_STATE" ]; then
  rm -f "$FAKE_STATE/alive.$$"
fi
name=$(basename "$entry" .py)
mkdir -p "$dist"
echo bin > "$dist/$name"
exit 0
`

const helloSource = `"""Hello."""
import sys


def main():
    print("hello")


if __name__ == "__main__":
    main()
`

type fixture struct {
	dir     string
	backend string
	dist    string
	state   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake backend is a shell script")
	}
	dir := t.TempDir()
	f := &fixture{
		dir:     dir,
		backend: filepath.Join(dir, "fake-backend"),
		dist:    filepath.Join(dir, "dist"),
		state:   filepath.Join(dir, "state"),
	}
	if err := os.WriteFile(f.backend, []byte(fakeBackend), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(f.state, 0o755); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) source(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, "app", name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (f *fixture) runner() *Runner {
	r := NewRunner(f.backend, f.dist)
	r.GOOS = "linux"
	r.Env = []string{"FAKE_STATE=" + f.state}
	r.KillGrace = time.Second
	r.Source = source.New()
	r.Stderr = nil
	return r
}

func (f *fixture) invocations(t *testing.T) int {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.state, "invocations"))
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
