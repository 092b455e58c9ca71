package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces environment overrides.
const EnvPrefix = "PACKWRIGHT_"

// LoadEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from PACKWRIGHT_* variables read through
// getenv. Values that cannot be parsed are skipped with a warning.
func (c *Config) ApplyEnv(getenv func(string) string) []string {
	var warnings []string
	get := func(name string) string { return strings.TrimSpace(getenv(EnvPrefix + name)) }

	if v := get("BACKEND"); v != "" {
		c.Backend.Path = v
	}
	if v := get("ENGINE"); v != "" {
		c.Backend.Engine = v
	}
	if v := get("OUTPUT_DIR"); v != "" {
		c.Build.OutputDir = v
	}
	if v := get("FORMAT"); v != "" {
		c.Build.Format = v
	}
	if v := get("PYTHON"); v != "" {
		c.Python.Interpreter = v
	}
	if v := get("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := get("MAX_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%sMAX_CONCURRENCY: %q is not an integer", EnvPrefix, v))
		} else {
			c.Batch.MaxConcurrency = n
		}
	}
	if v := get("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%sTIMEOUT: %q is not a duration", EnvPrefix, v))
		} else {
			c.Build.Timeout = d
		}
	}
	return warnings
}
