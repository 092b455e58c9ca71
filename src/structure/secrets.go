package structure

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// secretScanMaxSize skips large files; packaged projects keep credentials in
// small config files.
const secretScanMaxSize = 1 << 20

var secretScanExts = map[string]bool{
	".py": true, ".pyw": true, ".txt": true, ".toml": true, ".cfg": true,
	".ini": true, ".json": true, ".yml": true, ".yaml": true, ".env": true,
}

// SecretFinding is a probable credential committed to the project tree.
type SecretFinding struct {
	Path        string
	Line        int
	Rule        string
	Description string
}

func (f SecretFinding) String() string {
	return fmt.Sprintf("possible secret in %s:%d: %s (%s); it would be bundled into the executable", f.Path, f.Line, f.Description, f.Rule)
}

// ScanSecrets runs the gitleaks default rules over text files in root.
func ScanSecrets(root string) ([]SecretFinding, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("initializing secret detector: %w", err)
	}

	var findings []SecretFinding
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (name == ".git" || name == "__pycache__" || name == "venv" || name == ".venv" || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !(secretScanExts[strings.ToLower(filepath.Ext(name))] || name == ".env") {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > secretScanMaxSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		for _, h := range detector.DetectBytes(data) {
			findings = append(findings, SecretFinding{
				Path:        filepath.ToSlash(rel),
				Line:        h.StartLine + 1, // gitleaks is 0-indexed
				Rule:        h.RuleID,
				Description: h.Description,
			})
		}
		return nil
	})
	return findings, err
}
