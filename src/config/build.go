package config

import (
	"runtime"
	"time"

	"github.com/sofmeright/packwright/src/retention"
)

// BuildConfig holds defaults for single builds.
type BuildConfig struct {
	OutputDir string        `yaml:"output_dir"`
	Timeout   time.Duration `yaml:"timeout"`
	// Format is exe, app or binary. Default: the host's native format.
	Format    string   `yaml:"format"`
	ExtraArgs []string `yaml:"extra_args,omitempty"`
	// ResourceDir is bundled when data libraries are detected.
	ResourceDir string `yaml:"resource_dir"`
	// Backups prunes the timestamped copies made when an artifact is
	// replaced. The zero policy keeps every backup.
	Backups retention.Policy `yaml:"backups"`
}

// BatchConfig holds defaults for multi-file builds.
type BatchConfig struct {
	MaxConcurrency int  `yaml:"max_concurrency"`
	Recursive      bool `yaml:"recursive"`
}

// DefaultBuildConfig returns build defaults.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		OutputDir:   "dist",
		Timeout:     10 * time.Minute,
		Format:      nativeFormat(runtime.GOOS),
		ResourceDir: "resources",
	}
}

// DefaultBatchConfig returns batch defaults.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{MaxConcurrency: defaultConcurrency()}
}

func defaultConcurrency() int {
	return min(max(runtime.NumCPU()/2, 1), 4)
}

func nativeFormat(goos string) string {
	switch goos {
	case "windows":
		return "exe"
	case "darwin":
		return "app"
	default:
		return "binary"
	}
}
