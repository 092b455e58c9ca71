//go:build !windows

package build

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup starts the backend in its own group so that helpers it
// spawns are terminated with it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessTree(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		return p.Kill()
	}
	return nil
}
