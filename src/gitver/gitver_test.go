package gitver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commit(t *testing.T, repo *git.Repository, dir, name string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{"git@github.com:acme/tool.git"}})
	require.NoError(t, err)

	commit(t, repo, dir, "a.py")
	info, err := Detect(dir)
	require.NoError(t, err)
	assert.Len(t, info.SHA, 7)
	assert.Equal(t, "0.0.0-dev+"+info.SHA, info.Version)
	assert.Equal(t, "tool", info.Name)
	assert.Equal(t, "https://github.com/acme/tool", info.URL)

	head, err := repo.Head()
	require.NoError(t, err)
	_, err = repo.CreateTag("v1.4.0-rc.1", head.Hash(), nil)
	require.NoError(t, err)

	info, err = Detect(filepath.Join(dir))
	require.NoError(t, err)
	assert.True(t, info.IsRelease)
	assert.Equal(t, "1.4.0-rc.1", info.Version)
	assert.Equal(t, "rc.1", info.Prerelease)

	commit(t, repo, dir, "b.py")
	info, err = Detect(dir)
	require.NoError(t, err)
	assert.False(t, info.IsRelease)
	assert.Equal(t, "v1.4.0-rc.1", info.Tag)
	assert.Equal(t, "1.4.0-rc.1-dev+"+info.SHA, info.Version)
	assert.Contains(t, info.String(), "tool 1.4.0-rc.1-dev+")
}

func TestDetectSubdirectoryAndNonRepo(t *testing.T) {
	dir := t.TempDir()
	_, err := Detect(dir)
	assert.ErrorIs(t, err, ErrNotRepository)

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	commit(t, repo, dir, "main.py")
	sub := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	info, err := Detect(sub)
	require.NoError(t, err)
	assert.NotEmpty(t, info.Branch)
}

func TestRemoteHelpers(t *testing.T) {
	assert.Equal(t, "repo", repoNameFromRemote("https://host/org/repo.git"))
	assert.Equal(t, "repo", repoNameFromRemote("git@host:org/repo.git"))
	assert.Equal(t, "https://host/org/repo", remoteToHTTPS("git@host:org/repo.git"))
	assert.Equal(t, "http://host/x", remoteToHTTPS("http://host/x.git"))
}

func TestDetectLicense(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, DetectLicense(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "LICENSE"), []byte("MIT License\n\nPermission is hereby granted..."), 0o644))
	assert.Equal(t, "MIT", DetectLicense(dir))
	assert.Equal(t, "LGPL-3.0", matchLicense("GNU LESSER GENERAL PUBLIC LICENSE Version 3"))
	assert.Equal(t, "Apache-2.0", matchLicense("Apache License\nVersion 2.0, January 2004"))
}
