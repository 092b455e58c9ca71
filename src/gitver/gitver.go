// Package gitver describes the repository a project lives in: revision,
// nearest version tag, remote and license. It backs the headers of build
// logs and readiness reports.
package gitver

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ErrNotRepository is returned when root is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// maxTagDepth bounds the history walk looking for the nearest tag.
const maxTagDepth = 1000

// Info is what the repository says about a project.
type Info struct {
	Version    string // "1.2.3", "1.2.3-rc.1", "1.2.3-dev+abc1234", "0.0.0-dev+abc1234"
	Tag        string
	SHA        string
	Branch     string
	IsRelease  bool // HEAD is exactly at a version tag
	Prerelease string
	Name       string // last path component of the origin remote
	URL        string // origin remote as https
}

var semverRe = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(?:-(.+))?$`)

// Detect opens the repository containing root.
func Detect(root string) (*Info, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	info := &Info{SHA: head.Hash().String()[:7]}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	} else {
		info.Branch = "HEAD"
	}

	if remote, err := repo.Remote("origin"); err == nil && len(remote.Config().URLs) > 0 {
		url := remote.Config().URLs[0]
		info.URL = remoteToHTTPS(url)
		info.Name = repoNameFromRemote(url)
	}

	tags, err := tagsByCommit(repo)
	if err != nil {
		return nil, err
	}
	tag, distance := nearestTag(repo, head.Hash(), tags)
	info.Tag = tag
	info.IsRelease = tag != "" && distance == 0
	info.Version = version(tag, info.SHA, info.IsRelease, &info.Prerelease)
	return info, nil
}

// String renders the revision for log headers.
func (i *Info) String() string {
	s := i.Version + " (" + i.Branch + "@" + i.SHA + ")"
	if i.Name != "" {
		s = i.Name + " " + s
	}
	return s
}

func version(tag, sha string, release bool, prerelease *string) string {
	if tag == "" {
		return "0.0.0-dev+" + sha
	}
	v := strings.TrimPrefix(tag, "v")
	if m := semverRe.FindStringSubmatch(tag); m != nil {
		v = fmt.Sprintf("%s.%s.%s", m[1], m[2], m[3])
		if m[4] != "" {
			*prerelease = m[4]
			v += "-" + m[4]
		}
	}
	if !release {
		v += "-dev+" + sha
	}
	return v
}

// tagsByCommit maps commit hashes to the version tags pointing at them,
// peeling annotated tags.
func tagsByCommit(repo *git.Repository) (map[plumbing.Hash]string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	out := make(map[plumbing.Hash]string)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		hash := ref.Hash()
		if tag, err := repo.TagObject(hash); err == nil {
			c, err := tag.Commit()
			if err != nil {
				return nil
			}
			hash = c.Hash
		}
		if prev, ok := out[hash]; !ok || preferTag(name, prev) {
			out[hash] = name
		}
		return nil
	})
	return out, err
}

// preferTag picks semver tags over others, then the lexically greater.
func preferTag(name, prev string) bool {
	a, b := semverRe.MatchString(name), semverRe.MatchString(prev)
	if a != b {
		return a
	}
	return name > prev
}

func nearestTag(repo *git.Repository, from plumbing.Hash, tags map[plumbing.Hash]string) (string, int) {
	if len(tags) == 0 {
		return "", 0
	}
	iter, err := repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return "", 0
	}
	defer iter.Close()

	var found string
	depth := 0
	_ = iter.ForEach(func(c *object.Commit) error {
		if name, ok := tags[c.Hash]; ok {
			found = name
			return storer.ErrStop
		}
		depth++
		if depth >= maxTagDepth {
			return storer.ErrStop
		}
		return nil
	})
	if found == "" {
		return "", 0
	}
	return found, depth
}

// repoNameFromRemote extracts the repository name from a git remote URL.
// Handles SSH (git@host:org/repo.git) and HTTPS (https://host/org/repo.git).
func repoNameFromRemote(remote string) string {
	remote = strings.TrimSuffix(remote, ".git")
	if idx := strings.LastIndex(remote, ":"); idx != -1 && !strings.Contains(remote, "://") {
		remote = remote[idx+1:]
	}
	if idx := strings.LastIndex(remote, "/"); idx != -1 {
		return remote[idx+1:]
	}
	return remote
}

// remoteToHTTPS converts a git remote URL to HTTPS format for display.
func remoteToHTTPS(remote string) string {
	remote = strings.TrimSuffix(remote, ".git")
	if strings.HasPrefix(remote, "https://") || strings.HasPrefix(remote, "http://") {
		return remote
	}
	if idx := strings.Index(remote, "@"); idx != -1 {
		rest := strings.Replace(remote[idx+1:], ":", "/", 1)
		return "https://" + rest
	}
	return remote
}
