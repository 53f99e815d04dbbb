//go:build unix

package executor

import (
	"os/exec"
	"syscall"
)

// procGroupAttr places the spawned shell in its own process group so the
// whole tree can be signaled on timeout.
func procGroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup SIGTERMs the command's process group (shell and any
// children). Falls back to killing the single process if the group signal
// fails.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM); err != nil {
		_ = cmd.Process.Kill()
	}
}
