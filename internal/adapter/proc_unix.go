//go:build unix

package adapter

import (
	"os/exec"
	"syscall"
)

// setProcessGroup places the engine in its own process group so that a
// timeout kills everything it spawned, not just the direct child.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// Negative PID addresses the whole group.
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
