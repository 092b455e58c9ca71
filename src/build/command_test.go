package build

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		job  BuildJob
		goos string
		want []string
	}{
		{
			name: "binary",
			job:  BuildJob{Source: "/p/main.py", Format: FormatBinary},
			goos: "linux",
			want: []string{"--noconfirm", "--distpath=/out", "--onefile", "/p/main.py"},
		},
		{
			name: "exe",
			job:  BuildJob{Source: `C:\p\main.py`, Format: FormatExe},
			goos: "windows",
			want: []string{"--noconfirm", "--distpath=/out", "--onefile", "--noconsole", `C:\p\main.py`},
		},
		{
			name: "app with resources",
			job: BuildJob{Source: "/p/main.py", Format: FormatApp, ExtraArgs: []string{
				"--add-data=assets:assets", "--icon=app.icns", "--add-binary", "lib/x.so;lib",
			}},
			goos: "darwin",
			want: []string{
				"--noconfirm", "--distpath=/out", "--onefile", "--windowed",
				"--add-data=assets:assets", "--icon=app.icns", "--add-binary", "lib/x.so:lib",
				"/p/main.py",
			},
		},
		{
			name: "windows drive letters",
			job: BuildJob{Source: "main.py", Format: FormatExe, ExtraArgs: []string{
				`--add-data=C:\data\cfg.json:config`, "--add-data=D:/img;img", "--add-data=readme.txt",
			}},
			goos: "windows",
			want: []string{
				"--noconfirm", "--distpath=/out", "--onefile", "--noconsole",
				`--add-data=C:\data\cfg.json;config`, "--add-data=D:/img;img", "--add-data=readme.txt;.",
				"main.py",
			},
		},
		{
			name: "spec file",
			job:  BuildJob{Source: "/p/main.py", Format: FormatBinary, SpecFile: "/p/main.spec", ExtraArgs: []string{"--clean"}},
			goos: "linux",
			want: []string{"--noconfirm", "--distpath=/out", "--clean", "/p/main.spec"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Args(tt.job, "/out", tt.goos)); diff != "" {
				t.Errorf("Args() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestArgsDoesNotModifyJob(t *testing.T) {
	extra := []string{"--add-data", "a;b"}
	Args(BuildJob{Source: "m.py", Format: FormatBinary, ExtraArgs: extra}, "/out", "linux")
	assert.Equal(t, []string{"--add-data", "a;b"}, extra)
}

func TestSplitResource(t *testing.T) {
	tests := []struct{ in, src, dst string }{
		{"a:b", "a", "b"},
		{"a;b", "a", "b"},
		{`C:\x\y:z`, `C:\x\y`, "z"},
		{"C:/x", "C:/x", ""},
		{"plain", "plain", ""},
	}
	for _, tt := range tests {
		src, dst := SplitResource(tt.in)
		assert.Equal(t, tt.src, src, tt.in)
		assert.Equal(t, tt.dst, dst, tt.in)
	}
}

func TestCommandLineQuotes(t *testing.T) {
	assert.Equal(t, `pyinstaller --onefile "/my dir/main.py"`,
		CommandLine("pyinstaller", []string{"--onefile", "/my dir/main.py"}))
}

func TestFormats(t *testing.T) {
	f, err := ParseFormat(" EXE ")
	assert.NoError(t, err)
	assert.Equal(t, FormatExe, f)
	_, err = ParseFormat("deb")
	assert.ErrorContains(t, err, "app, binary, exe")

	assert.True(t, FormatBinary.SupportedOn("darwin"))
	assert.False(t, FormatApp.SupportedOn("linux"))
	assert.Equal(t, []Format{FormatApp, FormatBinary}, SupportedFormats("darwin"))
	assert.Equal(t, FormatBinary, DefaultFormat("freebsd"))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("x")))

	inner := errors.New("denied")
	err := Wrap(KindBackupFailed, inner, "backing up %s", "a")
	assert.Equal(t, KindBackupFailed, KindOf(err))
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "backing up a: denied", err.Error())
	assert.Equal(t, "ArtifactBackupFailed", KindBackupFailed.String())
}
