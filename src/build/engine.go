package build

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultEngine is used when a runner names no engine.
const DefaultEngine = "pyinstaller"

// Engine turns a job into a concrete backend invocation.
type Engine interface {
	Name() string
	// Executable is the backend command used when none is configured.
	Executable() string
	Args(job BuildJob, distPath, goos string) []string
	OutputPath(distPath string, job BuildJob, goos string) string
	SupportsSpecFiles() bool
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Engine{}
)

func init() {
	Register(DefaultEngine, func() Engine { return pyinstaller{} })
}

// Register adds an engine constructor to the global registry.
// Called from init() in each engine package.
func Register(name string, constructor func() Engine) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("build: duplicate engine registration: %s", name))
	}
	registry[name] = constructor
}

// Get returns a new instance of the named engine.
func Get(name string) (Engine, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("build: unknown engine: %s", name)
	}
	return ctor(), nil
}

// All returns sorted names of all registered engines.
func All() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type pyinstaller struct{}

func (pyinstaller) Name() string { return DefaultEngine }

func (pyinstaller) Executable() string { return "pyinstaller" }

func (pyinstaller) Args(job BuildJob, distPath, goos string) []string {
	return Args(job, distPath, goos)
}

func (pyinstaller) OutputPath(distPath string, job BuildJob, goos string) string {
	return OutputPath(distPath, job.Source, job.Format, goos)
}

func (pyinstaller) SupportsSpecFiles() bool { return true }
