package config

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// DefaultLogConfig returns info-level text logging.
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "text"}
}
