package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sofmeright/packwright/src/pysyntax"
)

// SyntaxChecker decides whether source text is valid for the target
// interpreter.
type SyntaxChecker interface {
	CheckSyntax(ctx context.Context, path string, src []byte) error
}

// Builtin checks syntax with the in-process structural parser.
type Builtin struct{}

// CheckSyntax implements SyntaxChecker.
func (Builtin) CheckSyntax(_ context.Context, _ string, src []byte) error {
	_, err := pysyntax.Parse(src)
	return err
}

// Resolve returns an Interpreter checker when python is on PATH and the
// builtin parser otherwise. An empty name means python3.
func Resolve(python string) SyntaxChecker {
	if python == "" {
		python = "python3"
	}
	if path, err := exec.LookPath(python); err == nil {
		return Interpreter{Python: path}
	}
	return Builtin{}
}

// compileScript asks the interpreter's own grammar to parse the file.
const compileScript = "import ast,sys\nwith open(sys.argv[1],'rb') as f:\n    ast.parse(f.read(), sys.argv[1])\n"

// Interpreter checks syntax by running the target interpreter's parser.
type Interpreter struct {
	Python  string
	Timeout time.Duration
}

// CheckSyntax implements SyntaxChecker.
func (i Interpreter) CheckSyntax(ctx context.Context, path string, _ []byte) error {
	python := i.Python
	if python == "" {
		python = "python3"
	}
	timeout := i.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, python, "-c", compileScript, path)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return errors.New(lastLine(stderr.String()))
		}
		return fmt.Errorf("running %s: %w", python, err)
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 || lines[len(lines)-1] == "" {
		return "interpreter rejected source"
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
