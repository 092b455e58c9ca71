package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Settings is the subset of a front end's JSON settings store the build
// engine reads. The store is never written from here.
type Settings struct {
	OutputDirectory string
	OutputFormat    string
	LastProject     string
}

type settingsFile struct {
	OutputDirectory  string `json:"output_directory"`
	DefaultOutputDir string `json:"default_output_dir"`
	OutputFormat     string `json:"output_format"`
	LastProject      string `json:"last_project"`
}

// ReadSettings reads the settings store at path. A missing file yields
// empty settings.
func ReadSettings(path string) (Settings, error) {
	if path == "" {
		return Settings{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Settings{}, nil
		}
		return Settings{}, err
	}
	var raw settingsFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return Settings{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	s := Settings{
		OutputDirectory: raw.OutputDirectory,
		OutputFormat:    raw.OutputFormat,
		LastProject:     raw.LastProject,
	}
	if s.OutputDirectory == "" {
		s.OutputDirectory = raw.DefaultOutputDir
	}
	return s, nil
}

// ApplySettings uses the store's output directory when the YAML left the
// default in place.
func (c *Config) ApplySettings(s Settings) {
	if s.OutputDirectory != "" && c.Build.OutputDir == DefaultBuildConfig().OutputDir {
		c.Build.OutputDir = s.OutputDirectory
	}
}
