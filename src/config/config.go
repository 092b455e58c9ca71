// Package config loads the typed packwright configuration from
// .packwright.yml, environment overrides and the optional JSON settings
// store kept by desktop front ends.
package config

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when no path is given.
const DefaultConfigFile = ".packwright.yml"

// Config is the top-level packwright configuration.
type Config struct {
	Backend      BackendConfig   `yaml:"backend"`
	Build        BuildConfig     `yaml:"build"`
	Batch        BatchConfig     `yaml:"batch"`
	Python       PythonConfig    `yaml:"python"`
	Validate     StructureConfig `yaml:"validate"`
	Badges       BadgesConfig    `yaml:"badges"`
	Log          LogConfig       `yaml:"log"`
	SettingsFile string          `yaml:"settings_file"`
}

// Load reads configuration from a YAML file.
// If path is empty, it tries the default file.
// Returns defaults if the file doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Defaults(), nil
		}
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Backend:  DefaultBackendConfig(),
		Build:    DefaultBuildConfig(),
		Batch:    DefaultBatchConfig(),
		Python:   DefaultPythonConfig(),
		Validate: DefaultStructureConfig(),
		Badges:   DefaultBadgesConfig(),
		Log:      DefaultLogConfig(),
	}
}
