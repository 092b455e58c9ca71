//go:build windows

package build

import (
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

func killProcessTree(p *os.Process) error {
	return p.Kill()
}
