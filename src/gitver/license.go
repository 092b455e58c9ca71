package gitver

import (
	"os"
	"path/filepath"
	"strings"
)

var licenseFiles = []string{
	"LICENSE", "LICENSE.md", "LICENSE.txt",
	"LICENCE", "LICENCE.md", "LICENCE.txt",
	"COPYING", "COPYING.md",
}

// DetectLicense returns the SPDX identifier of the project's license
// file, or "" when none is recognized.
func DetectLicense(root string) string {
	for _, name := range licenseFiles {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		if id := matchLicense(string(data)); id != "" {
			return id
		}
	}
	return ""
}

func matchLicense(text string) string {
	lower := strings.ToLower(text)
	has := func(s ...string) bool {
		for _, x := range s {
			if !strings.Contains(lower, x) {
				return false
			}
		}
		return true
	}

	switch {
	case has("gnu affero general public license", "version 3"):
		return "AGPL-3.0"
	case has("gnu lesser general public license", "version 3"):
		return "LGPL-3.0"
	case has("gnu lesser general public license", "version 2"):
		return "LGPL-2.1"
	case has("gnu general public license", "version 3"):
		return "GPL-3.0"
	case has("gnu general public license", "version 2"):
		return "GPL-2.0"
	case has("apache license", "version 2.0"):
		return "Apache-2.0"
	case has("mit license"), has("permission is hereby granted", "the software"):
		return "MIT"
	case has("bsd 3-clause"), has("redistribution and use", "neither the name"):
		return "BSD-3-Clause"
	case has("bsd 2-clause"), has("redistribution and use") && !has("gnu"):
		return "BSD-2-Clause"
	case has("mozilla public license", "2.0"):
		return "MPL-2.0"
	case has("isc license"):
		return "ISC"
	case has("the unlicense"):
		return "Unlicense"
	}
	return ""
}
