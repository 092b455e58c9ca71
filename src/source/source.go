// Package source decides whether a file may be used as a build input or as
// input to dependency analysis.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxFileSize is the default size ceiling for a source file.
const MaxFileSize int64 = 10 << 20

// Rejection reasons. Every error returned by Check wraps exactly one.
var (
	ErrNotExist   = errors.New("file does not exist")
	ErrNotFile    = errors.New("not a regular file")
	ErrExtension  = errors.New("unsupported file extension")
	ErrUnsafePath = errors.New("unsafe path")
	ErrTooLarge   = errors.New("file too large")
	ErrEncoding   = errors.New("file is not valid UTF-8")
	ErrSyntax     = errors.New("syntax error")
)

// unsafePatterns are rejected anywhere in the path as given by the caller,
// after native separators are converted to "/". A backslash that survives
// the conversion is not a separator on this OS.
var unsafePatterns = []string{"../", "//", `\`}

// Validator checks candidate source files. The zero value is not usable;
// construct with New.
type Validator struct {
	MaxSize    int64
	Extensions []string
	Syntax     SyntaxChecker
}

// New returns a Validator with the default size ceiling, the .py/.pyw
// extensions, and the built-in syntax checker.
func New() *Validator {
	return &Validator{
		MaxSize:    MaxFileSize,
		Extensions: []string{".py", ".pyw"},
		Syntax:     Builtin{},
	}
}

var defaultValidator = New()

// Validate reports whether path passes every check of the default Validator.
func Validate(path string) bool {
	return defaultValidator.Validate(path)
}

// Validate is the boolean form of Check.
func (v *Validator) Validate(path string) bool {
	return v.Check(context.Background(), path) == nil
}

// Check runs the path, size and encoding gates and then the syntax checker.
func (v *Validator) Check(ctx context.Context, path string) error {
	src, err := v.read(path)
	if err != nil {
		return err
	}
	if v.Syntax == nil {
		return nil
	}
	if err := v.Syntax.CheckSyntax(ctx, path, src); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrSyntax, err)
	}
	return nil
}

// CheckPath runs every gate except the syntax check. Dependency analysis
// uses it so that unparsable files can still be scanned line by line.
func (v *Validator) CheckPath(path string) error {
	_, err := v.read(path)
	return err
}

// Read runs the CheckPath gates and returns the file contents.
func (v *Validator) Read(path string) ([]byte, error) {
	return v.read(path)
}

func (v *Validator) read(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path: %w", ErrNotExist)
	}
	slashed := filepath.ToSlash(path)
	for _, p := range unsafePatterns {
		if strings.Contains(slashed, p) {
			return nil, fmt.Errorf("%s: %w: contains %q", path, ErrUnsafePath, p)
		}
	}
	if !v.hasExtension(path) {
		return nil, fmt.Errorf("%s: %w (want %s)", path, ErrExtension, strings.Join(v.Extensions, ", "))
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFile)
	}
	limit := v.MaxSize
	if limit <= 0 {
		limit = MaxFileSize
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%s: %w (%d bytes, limit %d)", path, ErrTooLarge, info.Size(), limit)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrEncoding)
	}
	return data, nil
}

func (v *Validator) hasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range v.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
