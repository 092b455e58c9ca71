package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// OutputPath is where the backend leaves the artifact for source.
func OutputPath(distDir, source string, format Format, goos string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	switch {
	case goos == "windows":
		stem += ".exe"
	case format == FormatApp:
		stem += ".app"
	}
	return filepath.Join(distDir, stem)
}

// BackupExisting renames an artifact already at path to
// <path>.bak_YYYYmmdd_HHMMSS, adding a counter if that name is taken. It
// returns the backup path, or "" when there was nothing to move.
func BackupExisting(path string, now time.Time) (string, error) {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	base := path + ".bak_" + now.Format(backupStamp)
	target := base
	for n := 1; ; n++ {
		if _, err := os.Lstat(target); os.IsNotExist(err) {
			break
		}
		target = fmt.Sprintf("%s_%d", base, n)
	}
	if err := os.Rename(path, target); err != nil {
		return "", err
	}
	return target, nil
}

// PathLocks serializes work on the same artifact path across runners.
type PathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// NewPathLocks returns an empty lock table.
func NewPathLocks() *PathLocks {
	return &PathLocks{locks: make(map[string]*pathLock)}
}

// Lock blocks until path is free and returns the matching unlock.
func (p *PathLocks) Lock(path string) (unlock func()) {
	key := filepath.Clean(path)

	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*pathLock)
	}
	l, ok := p.locks[key]
	if !ok {
		l = &pathLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}
