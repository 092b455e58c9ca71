package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sofmeright/packwright/src/build"
)

var skipDirs = map[string]bool{
	"__pycache__": true, "venv": true, "env": true, "build": true,
	"dist": true, "node_modules": true, "site-packages": true,
}

var skipFiles = map[string]bool{"__init__.py": true, "setup.py": true, "conftest.py": true}

// JobsFromDirectory creates one job per script found under root. Hidden,
// virtualenv, cache and build output directories are never entered. Job
// sources are absolute.
func JobsFromDirectory(root string, format build.Format, recursive bool, opts ...build.JobOption) ([]build.BuildJob, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "scan", Path: root, Err: fs.ErrInvalid}
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if !recursive || strings.HasPrefix(d.Name(), ".") || skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if (ext == ".py" || ext == ".pyw") && !skipFiles[d.Name()] && !strings.HasPrefix(d.Name(), ".") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	jobs := make([]build.BuildJob, len(paths))
	for i, p := range paths {
		jobs[i] = build.NewJob(p, format, opts...)
	}
	return jobs, nil
}
