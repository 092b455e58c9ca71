package config

// StructureConfig overrides the project checklists. Items accept "a|b"
// alternatives; a trailing "/" requires a directory. Empty lists keep the
// built-in checklist.
type StructureConfig struct {
	Required        []string `yaml:"required,omitempty"`
	Recommended     []string `yaml:"recommended,omitempty"`
	BestPractice    []string `yaml:"best_practice,omitempty"`
	EntryCandidates []string `yaml:"entry_candidates,omitempty"`
	SecretScan      bool     `yaml:"secret_scan"`
}

// DefaultStructureConfig enables the secret scan with built-in lists.
func DefaultStructureConfig() StructureConfig {
	return StructureConfig{SecretScan: true}
}
