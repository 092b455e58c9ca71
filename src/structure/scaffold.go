package structure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
)

// ErrNotEmpty is returned when scaffolding into a directory that already
// has content.
var ErrNotEmpty = errors.New("target directory is not empty")

// Profile is a scaffolding preset.
type Profile struct {
	Name         string
	Description  string
	Dependencies []string
	Imports      string
	Body         string
}

var profiles = map[string]Profile{
	"console": {
		Name:         "console",
		Description:  "command line application using click",
		Dependencies: []string{"click>=8.0.0"},
		Imports:      "import click",
		Body: `@click.command()
@click.option("--name", default="world", help="Who to greet.")
def cli(name):
    logger.info("greeting %s", name)
    click.echo(f"Hello, {name}!")


def main():
    """Run the command line interface."""
    try:
        cli()
    except Exception:
        logger.exception("unhandled error")
        sys.exit(1)`,
	},
	"cli": {
		Name:        "cli",
		Description: "command line application using argparse",
		Imports:     "import argparse",
		Body: `def main():
    """Parse arguments and run."""
    parser = argparse.ArgumentParser(description="{{.Name}}")
    parser.add_argument("--verbose", action="store_true")
    args = parser.parse_args()
    if args.verbose:
        logger.setLevel(logging.DEBUG)
    try:
        logger.info("started")
    except Exception:
        logger.exception("unhandled error")
        sys.exit(1)`,
	},
	"gui": {
		Name:        "gui",
		Description: "desktop application using tkinter",
		Imports:     "import tkinter as tk",
		Body: `def main():
    """Open the main window."""
    try:
        root = tk.Tk()
        root.title("{{.Name}}")
        tk.Label(root, text="Hello from {{.Name}}").pack(padx=20, pady=20)
        root.mainloop()
    except Exception:
        logger.exception("unhandled error")
        sys.exit(1)`,
	},
	"web": {
		Name:         "web",
		Description:  "web application using Flask",
		Dependencies: []string{"flask>=2.0.0", "gunicorn>=20.0.0"},
		Imports:      "from flask import Flask",
		Body: `app = Flask(__name__)


@app.route("/")
def index():
    return "Hello from {{.Name}}"


def main():
    """Serve the application."""
    try:
        app.run(host="127.0.0.1", port=5000)
    except Exception:
        logger.exception("unhandled error")
        sys.exit(1)`,
	},
	"api": {
		Name:         "api",
		Description:  "HTTP API using FastAPI",
		Dependencies: []string{"fastapi>=0.68.0", "uvicorn>=0.15.0"},
		Imports:      "import uvicorn\nfrom fastapi import FastAPI",
		Body: `app = FastAPI(title="{{.Name}}")


@app.get("/health")
def health():
    return {"status": "ok"}


def main():
    """Serve the API."""
    try:
        uvicorn.run(app, host="127.0.0.1", port=8000)
    except Exception:
        logger.exception("unhandled error")
        sys.exit(1)`,
	},
}

// Profiles returns the available profile names.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

const mainTemplate = `"""{{.Name}}: {{.Description}}."""
import logging
import sys
{{.Imports}}

logging.basicConfig(level=logging.INFO)
logger = logging.getLogger(__name__)


{{.Body}}


if __name__ == "__main__":
    main()
`

const readmeTemplate = `# {{.Name}}

{{.Description}}

## Build

    packwright build --project .
`

const testTemplate = `"""Smoke tests for {{.Name}}."""
import importlib.util


def test_entry_point_exists():
    assert importlib.util.find_spec("src.main") is not None
`

const pyprojectTemplate = `[project]
name = "{{.Name}}"
version = "0.1.0"
requires-python = ">=3.8"
dependencies = [{{range $i, $d := .Dependencies}}{{if $i}}, {{end}}"{{$d}}"{{end}}]
`

const gitignore = `__pycache__/
*.py[cod]
build/
dist/
output/
*.spec
.venv/
venv/
.env
`

type scaffoldData struct {
	Name         string
	Description  string
	Dependencies []string
	Imports      string
	Body         string
}

// GenerateStructure scaffolds a new project at root using the named
// profile. root may be missing or an empty directory.
func GenerateStructure(root, profile string) error {
	p, ok := profiles[profile]
	if !ok {
		return fmt.Errorf("unknown profile %q (available: %s)", profile, strings.Join(Profiles(), ", "))
	}

	if info, err := os.Stat(root); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s: %w", root, ErrNotEmpty)
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			return fmt.Errorf("reading %s: %w", root, err)
		}
		if len(entries) > 0 {
			return fmt.Errorf("%s: %w", root, ErrNotEmpty)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", root, err)
	}

	data := scaffoldData{
		Name:         filepath.Base(filepath.Clean(root)),
		Description:  p.Description,
		Dependencies: p.Dependencies,
		Imports:      p.Imports,
	}
	body, err := render("body", p.Body, data)
	if err != nil {
		return err
	}
	data.Body = body

	for _, dir := range []string{"src", "tests", "docs", "config", "resources"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	files := []struct {
		path, tmpl string
	}{
		{"src/__init__.py", ""},
		{"tests/__init__.py", ""},
		{"config/__init__.py", ""},
		{"src/main.py", mainTemplate},
		{"tests/test_main.py", testTemplate},
		{"README.md", readmeTemplate},
		{"pyproject.toml", pyprojectTemplate},
		{".gitignore", gitignore},
		{"requirements.txt", "{{range .Dependencies}}{{.}}\n{{end}}"},
		{"docs/index.md", "# {{.Name}}\n"},
		{"resources/.keep", ""},
	}
	for _, f := range files {
		content, err := render(f.path, f.tmpl, data)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(f.path)), []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.path, err)
		}
	}
	return nil
}

func render(name, text string, data scaffoldData) (string, error) {
	t, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing template %s: %w", name, err)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return b.String(), nil
}
