package config

// BadgesConfig holds badge generation configuration.
type BadgesConfig struct {
	FontSize float64 `yaml:"font_size"` // pixel size (default: 11)
	FontFile string  `yaml:"font_file"` // path to custom TTF/OTF
	Output   string  `yaml:"output"`    // directory (default: .packwright/badges)
	Embed    bool    `yaml:"embed_font"` // inline the font as base64 @font-face
}

// DefaultBadgesConfig returns sensible defaults for badge generation.
func DefaultBadgesConfig() BadgesConfig {
	return BadgesConfig{
		FontSize: 11,
		Output:   ".packwright/badges",
	}
}
