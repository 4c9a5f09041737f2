package executor

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/roach88/wasitest/internal/invoke"
)

// TrapExitCode is reported for guests that trap instead of calling proc_exit.
const TrapExitCode = -1

// Wazero runs guests in-process on the wazero runtime. It serves as a
// reference engine: a suite that passes on Wazero but fails on the runtime
// under test points at the runtime rather than the fixtures.
//
// Argv is ignored; the guest path and arguments come from the invocation
// and the invocation directory is mounted as the guest's root.
type Wazero struct {
	// Stderr receives the guest's stderr. Nil discards it.
	Stderr io.Writer
}

// NewWazero returns a Wazero executor forwarding guest stderr to stderr.
func NewWazero(stderr io.Writer) *Wazero {
	return &Wazero{Stderr: stderr}
}

// Execute instantiates the guest with WASI preview1 and runs _start.
func (w *Wazero) Execute(ctx context.Context, inv invoke.Invocation) (Outcome, error) {
	guestPath := inv.GuestPath
	if !filepath.IsAbs(guestPath) {
		guestPath = filepath.Join(inv.Dir, guestPath)
	}
	bin, err := os.ReadFile(guestPath)
	if err != nil {
		return nil, &LaunchError{Stage: StageLoad, Path: inv.GuestPath, Err: err}
	}

	var stdin io.Reader
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

	rt := wazero.NewRuntimeWithConfig(runCtx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer rt.Close(context.Background())

	if _, err := wasi_snapshot_preview1.Instantiate(runCtx, rt); err != nil {
		return nil, &LaunchError{Stage: StageLoad, Path: "wasi_snapshot_preview1", Err: err}
	}

	compiled, err := rt.CompileModule(runCtx, bin)
	if err != nil {
		return nil, &LaunchError{Stage: StageLoad, Path: inv.GuestPath, Err: err}
	}

	var stdout bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs(append([]string{inv.GuestPath}, inv.GuestArgs...)...).
		WithStdout(&stdout).
		WithFSConfig(wazero.NewFSConfig().WithDirMount(inv.Dir, "/")).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader)
	if stdin != nil {
		cfg = cfg.WithStdin(stdin)
	}
	if w.Stderr != nil {
		cfg = cfg.WithStderr(w.Stderr)
	}

	_, err = rt.InstantiateModule(runCtx, compiled, cfg)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err == nil {
		return Success{Stdout: stdout.Bytes()}, nil
	}

	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		switch code := exitErr.ExitCode(); code {
		case 0:
			return Success{Stdout: stdout.Bytes()}, nil
		case sys.ExitCodeDeadlineExceeded:
			return TimedOut{After: inv.Timeout}, nil
		default:
			return AbnormalExit{Code: int(code)}, nil
		}
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return TimedOut{After: inv.Timeout}, nil
	}
	return AbnormalExit{Code: TrapExitCode, Detail: err.Error()}, nil
}
