package structure

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sofmeright/packwright/src/source"
)

func TestGenerateStructureScoresPerfectly(t *testing.T) {
	for _, profile := range Profiles() {
		t.Run(profile, func(t *testing.T) {
			root := filepath.Join(t.TempDir(), "demo")
			require.NoError(t, GenerateStructure(root, profile))

			r := quietValidator().Validate(root)
			require.True(t, r.Valid, r.Text())
			require.Equal(t, 100, r.Score, r.Text())
			require.NoError(t, source.New().Check(context.Background(), filepath.Join(root, "src", "main.py")))
		})
	}
}

func TestGenerateStructureIntoEmptyDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, GenerateStructure(root, "cli"))
	_, err := os.Stat(filepath.Join(root, "src", "main.py"))
	require.NoError(t, err)
}

func TestGenerateStructureRefusesNonEmpty(t *testing.T) {
	root := t.TempDir()
	writeTempFile(t, root, "keep.txt", "x")
	require.ErrorIs(t, GenerateStructure(root, "console"), ErrNotEmpty)

	file := writeTempFile(t, root, "file", "x")
	require.ErrorIs(t, GenerateStructure(file, "console"), ErrNotEmpty)
}

func TestGenerateStructureUnknownProfile(t *testing.T) {
	err := GenerateStructure(filepath.Join(t.TempDir(), "x"), "nope")
	require.ErrorContains(t, err, "unknown profile")
}
