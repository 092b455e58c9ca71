package config

import "time"

// BackendConfig selects the packaging tool.
type BackendConfig struct {
	// Path is the backend executable, looked up on PATH when relative.
	// Empty selects the engine's own executable.
	Path string `yaml:"path"`

	// Engine names how arguments are built for the backend: "pyinstaller"
	// or "nuitka".
	Engine string `yaml:"engine"`

	// ProbeTimeout bounds the version query made before every build.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// DefaultBackendConfig returns the PyInstaller defaults.
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Engine:       "pyinstaller",
		ProbeTimeout: 30 * time.Second,
	}
}
