package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sofmeright/packwright/src/retention"
)

const backupStamp = "20060102_150405"

// BackupStore exposes the backups BackupExisting made of one artifact
// path to the retention engine.
type BackupStore struct {
	Path string
}

// List returns every "<path>.bak_*" sibling. The timestamp in the name is
// authoritative; the modification time is used when it cannot be parsed.
func (s BackupStore) List(context.Context) ([]retention.Item, error) {
	dir, base := filepath.Split(s.Path)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	prefix := base + ".bak_"
	var items []retention.Item
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		created, ok := parseBackupStamp(strings.TrimPrefix(name, prefix))
		if !ok {
			info, err := e.Info()
			if err != nil {
				continue
			}
			created = info.ModTime()
		}
		items = append(items, retention.Item{Name: name, CreatedAt: created})
	}
	return items, nil
}

// Delete removes one backup. App bundles are directories.
func (s BackupStore) Delete(_ context.Context, name string) error {
	return os.RemoveAll(filepath.Join(filepath.Dir(s.Path), filepath.Base(name)))
}

// parseBackupStamp reads "YYYYmmdd_HHMMSS" with an optional "_N"
// collision suffix.
func parseBackupStamp(s string) (time.Time, bool) {
	if len(s) < len(backupStamp) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(backupStamp, s[:len(backupStamp)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	// Same-second collisions are ordered by their suffix.
	if rest := s[len(backupStamp):]; rest != "" {
		n := 0
		for _, c := range strings.TrimPrefix(rest, "_") {
			if c < '0' || c > '9' {
				return time.Time{}, false
			}
			n = n*10 + int(c-'0')
		}
		t = t.Add(time.Duration(n) * time.Millisecond)
	}
	return t, true
}
