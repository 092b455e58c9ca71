package deps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrNoEnvironment is returned by an inspector that cannot introspect the
// host interpreter. Missing-dependency detection degrades to empty.
var ErrNoEnvironment = errors.New("environment introspection unavailable")

// EnvironmentInspector lists the packages installed in the interpreter that
// will run the backend. Keys are canonical distribution names, values are
// installed versions.
type EnvironmentInspector interface {
	Installed(ctx context.Context) (map[string]string, error)
}

// PipInspector asks pip for the installed distributions.
type PipInspector struct {
	Python  string
	Timeout time.Duration
}

type pipEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Installed implements EnvironmentInspector.
func (p PipInspector) Installed(ctx context.Context) (map[string]string, error) {
	python := p.Python
	if python == "" {
		python = "python3"
	}
	if _, err := exec.LookPath(python); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrNoEnvironment, python)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, python, "-m", "pip", "list", "--format=json", "--disable-pip-version-check")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: pip list: %v: %s", ErrNoEnvironment, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return decodePipList(stdout.Bytes())
}

func decodePipList(data []byte) (map[string]string, error) {
	var entries []pipEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decoding pip output: %v", ErrNoEnvironment, err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[Canonical(e.Name)] = e.Version
	}
	return out, nil
}

// StaticInspector reports a fixed package set.
type StaticInspector map[string]string

// Installed implements EnvironmentInspector.
func (s StaticInspector) Installed(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s))
	for name, v := range s {
		out[Canonical(name)] = v
	}
	return out, nil
}
