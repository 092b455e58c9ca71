package build

import (
	"fmt"
	"sort"
	"strings"
)

// Format is the requested artifact kind.
type Format string

const (
	FormatExe    Format = "exe"
	FormatApp    Format = "app"
	FormatBinary Format = "binary"
)

// supportMatrix lists the operating systems (GOOS values) each format can
// be produced on.
var supportMatrix = map[Format][]string{
	FormatExe:    {"windows"},
	FormatApp:    {"darwin"},
	FormatBinary: {"linux", "darwin"},
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := supportMatrix[f]; !ok {
		return "", fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(formatNames(), ", "))
	}
	return f, nil
}

// Known reports whether f is a recognized format.
func (f Format) Known() bool {
	_, ok := supportMatrix[f]
	return ok
}

// SupportedOn reports whether f can be built on goos.
func (f Format) SupportedOn(goos string) bool {
	for _, os := range supportMatrix[f] {
		if os == goos {
			return true
		}
	}
	return false
}

// SupportedFormats returns the formats buildable on goos.
func SupportedFormats(goos string) []Format {
	var out []Format
	for _, name := range formatNames() {
		if f := Format(name); f.SupportedOn(goos) {
			out = append(out, f)
		}
	}
	return out
}

// DefaultFormat is the native artifact kind for goos.
func DefaultFormat(goos string) Format {
	switch goos {
	case "windows":
		return FormatExe
	case "darwin":
		return FormatApp
	default:
		return FormatBinary
	}
}

func formatNames() []string {
	names := make([]string, 0, len(supportMatrix))
	for f := range supportMatrix {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}
