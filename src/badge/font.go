package badge

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Font measures segment captions so each segment fits its text.
type Font struct {
	Family string
	Size   float64

	data []byte
	mu   sync.Mutex // guards face, which caches glyphs
	face font.Face
}

// ParseFont loads a TTF/OTF face at size pixels.
func ParseFont(family string, data []byte, size float64) (*Font, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", family, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("creating face for %s: %w", family, err)
	}
	return &Font{Family: family, Size: size, data: data, face: face}, nil
}

// DefaultFont is Go Regular, bundled with x/image.
func DefaultFont(size float64) (*Font, error) {
	return ParseFont("Go", goregular.TTF, size)
}

// LoadFontFile reads a font from disk; the family is the file's base name.
func LoadFontFile(path string, size float64) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading font file %s: %w", path, err)
	}
	return ParseFont(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), data, size)
}

// Width is the advance of s in whole pixels.
func (f *Font) Width(s string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return font.MeasureString(f.face, s).Ceil()
}

// fontFace is the @font-face rule that inlines the font into a badge.
func (f *Font) fontFace() string {
	ext, format := "ttf", "truetype"
	if bytes.HasPrefix(f.data, []byte("OTTO")) {
		ext, format = "otf", "opentype"
	}
	return fmt.Sprintf("@font-face{font-family:'%s';src:url(data:font/%s;base64,%s) format('%s')}",
		f.Family, ext, base64.StdEncoding.EncodeToString(f.data), format)
}
