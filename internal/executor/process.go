package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/roach88/wasitest/internal/invoke"
)

// DefaultWaitDelay bounds how long Execute waits for stdout to drain after
// the child has exited or been killed.
const DefaultWaitDelay = 2 * time.Second

// Process runs invocations as child processes.
type Process struct {
	// Stderr receives the child's stderr. Nil discards it.
	Stderr io.Writer

	// WaitDelay overrides DefaultWaitDelay when positive.
	WaitDelay time.Duration
}

// NewProcess returns a Process that forwards child stderr to stderr.
func NewProcess(stderr io.Writer) *Process {
	return &Process{Stderr: stderr}
}

// Execute spawns inv.Argv in inv.Dir and waits for it to exit or for
// inv.Timeout to pass. On timeout the child's whole process group is killed
// with SIGKILL, so a runtime that ignores SIGTERM cannot stall the suite.
//
// A cancelled ctx (as opposed to an expired timeout) kills the child too and
// returns ctx.Err().
func (p *Process) Execute(ctx context.Context, inv invoke.Invocation) (Outcome, error) {
	if len(inv.Argv) == 0 {
		return nil, &LaunchError{Stage: StageStart, Err: errors.New("empty argv")}
	}

	var stdin *os.File
	if path := inv.ResolvedStdin(); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, &LaunchError{Stage: StageStdin, Path: inv.StdinPath, Err: err}
		}
		defer f.Close()
		stdin = f
	}

	runCtx, cancel := context.WithTimeout(ctx, inv.Timeout)
	defer cancel()

	// #nosec G204 -- argv comes from the operator's runtime flag and suite.
	cmd := exec.CommandContext(runCtx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Dir
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = p.Stderr
	cmd.WaitDelay = p.waitDelay()
	killProcessGroup(cmd)

	err := cmd.Run()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err == nil {
		return Success{Stdout: stdout.Bytes()}, nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return TimedOut{After: inv.Timeout}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return AbnormalExit{Code: exitErr.ExitCode()}, nil
	}
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		// The runtime exited cleanly but something it spawned kept stdout
		// open; what was captured up to the exit is the output. Nothing may
		// outlive the case.
		_ = killLeftovers(cmd)
		return Success{Stdout: stdout.Bytes()}, nil
	}
	if cmd.ProcessState == nil {
		return nil, &LaunchError{Stage: StageStart, Path: inv.Argv[0], Err: err}
	}
	return nil, fmt.Errorf("waiting for %s: %w", inv.Argv[0], err)
}

func (p *Process) waitDelay() time.Duration {
	if p.WaitDelay > 0 {
		return p.WaitDelay
	}
	return DefaultWaitDelay
}
