// Package executor runs a single invocation under a deadline and classifies
// how it ended.
//
// Every run ends in exactly one Outcome:
//
//   - Success: exit status zero, carrying the complete stdout
//   - AbnormalExit: a non-zero exit status (or a trap, for in-process runs)
//   - TimedOut: the deadline fired and the run was forcibly stopped
//
// Problems that prevent a run from starting at all (an unreadable stdin
// file, a runtime binary that does not exist) are returned as *LaunchError
// instead, since no outcome was observed.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/wasitest/internal/invoke"
)

// Executor runs one invocation. Implementations spawn at most one run per
// call and release everything it held before returning.
type Executor interface {
	Execute(ctx context.Context, inv invoke.Invocation) (Outcome, error)
}

// Outcome is the sealed result of one run: Success, AbnormalExit or TimedOut.
type Outcome interface {
	outcome()
}

// Success means the run exited with status zero.
type Success struct {
	Stdout []byte
}

// AbnormalExit means the run ended with a non-zero status.
type AbnormalExit struct {
	Code int

	// Detail describes traps for in-process runs; empty for processes.
	Detail string
}

// TimedOut means the deadline fired before the run ended.
type TimedOut struct {
	After time.Duration
}

func (Success) outcome()      {}
func (AbnormalExit) outcome() {}
func (TimedOut) outcome()     {}

// Launch stages reported by LaunchError.
const (
	StageStdin = "stdin"
	StageStart = "start"
	StageLoad  = "load"
)

// LaunchError reports a run that could not be started.
type LaunchError struct {
	Stage string
	Path  string
	Err   error
}

func (e *LaunchError) Error() string {
	switch e.Stage {
	case StageStdin:
		return fmt.Sprintf("cannot open stdin %s: %v", e.Path, e.Err)
	case StageLoad:
		return fmt.Sprintf("cannot load %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("cannot start %s: %v", e.Path, e.Err)
	}
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Describe renders an outcome for logs.
func Describe(o Outcome) string {
	switch v := o.(type) {
	case Success:
		return fmt.Sprintf("success (%d bytes)", len(v.Stdout))
	case AbnormalExit:
		if v.Detail != "" {
			return fmt.Sprintf("abnormal exit %d: %s", v.Code, v.Detail)
		}
		return fmt.Sprintf("abnormal exit %d", v.Code)
	case TimedOut:
		return fmt.Sprintf("timed out after %s", v.After)
	default:
		return fmt.Sprintf("unknown outcome %T", o)
	}
}
