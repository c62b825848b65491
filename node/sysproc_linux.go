//go:build linux

package node

import (
	"os/exec"
	"syscall"
)

// bindToParent has the kernel send SIGTERM to the node when the harness process dies.
func bindToParent(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
}
