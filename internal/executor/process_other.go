//go:build !unix

package executor

import "os/exec"

// killProcessGroup keeps exec's default cancellation (Process.Kill) on
// platforms without process groups.
func killProcessGroup(cmd *exec.Cmd) {}

// killLeftovers has no group to signal once the child has exited.
func killLeftovers(cmd *exec.Cmd) error { return nil }
