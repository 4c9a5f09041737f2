//go:build unix

package executor

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// killProcessGroup starts the child in its own process group and makes
// context cancellation SIGKILL the whole group, so helpers the runtime
// spawned die with it.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killLeftovers(cmd)
	}
}

// killLeftovers SIGKILLs every process still in the child's group. It is
// also used after the child itself has exited, when something it spawned
// is still holding stdout.
func killLeftovers(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}
