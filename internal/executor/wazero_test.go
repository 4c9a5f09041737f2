package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wasitest/internal/invoke"
)

// Minimal hand-assembled WASI guests. Each exports memory and _start.

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func vec(items ...[]byte) []byte {
	return cat(uleb(uint32(len(items))), cat(items...))
}

func wasmName(s string) []byte {
	return cat(uleb(uint32(len(s))), []byte(s))
}

func section(id byte, body []byte) []byte {
	return cat([]byte{id}, uleb(uint32(len(body))), body)
}

func i32Const(v int32) []byte {
	return cat([]byte{0x41}, sleb(v))
}

const (
	typeFdWrite  = 0 // (i32, i32, i32, i32) -> i32
	typeStart    = 1 // () -> ()
	typeProcExit = 2 // (i32) -> ()
)

type testGuest struct {
	// Import is a wasi_snapshot_preview1 function imported as func 0.
	Import string
	Body   []byte
	Data   []byte
}

func (g testGuest) bytes() []byte {
	types := vec(
		[]byte{0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f},
		[]byte{0x60, 0x00, 0x00},
		[]byte{0x60, 0x01, 0x7f, 0x00},
	)

	var imports [][]byte
	if g.Import != "" {
		typeIdx := uint32(typeFdWrite)
		if g.Import == "proc_exit" {
			typeIdx = typeProcExit
		}
		imports = append(imports, cat(wasmName("wasi_snapshot_preview1"), wasmName(g.Import), []byte{0x00}, uleb(typeIdx)))
	}
	startIdx := uint32(len(imports))

	body := cat(uleb(0), g.Body, []byte{0x0b})

	mod := cat(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(1, types),
	)
	if len(imports) > 0 {
		mod = cat(mod, section(2, vec(imports...)))
	}
	mod = cat(mod,
		section(3, vec(uleb(typeStart))),
		section(5, vec([]byte{0x00, 0x01})),
		section(7, vec(
			cat(wasmName("_start"), []byte{0x00}, uleb(startIdx)),
			cat(wasmName("memory"), []byte{0x02, 0x00}),
		)),
		section(10, vec(cat(uleb(uint32(len(body))), body))),
	)
	if g.Data != nil {
		seg := cat([]byte{0x00}, i32Const(0), []byte{0x0b}, uleb(uint32(len(g.Data))), g.Data)
		mod = cat(mod, section(11, vec(seg)))
	}
	return mod
}

// helloGuest writes msg to stdout with a single fd_write. The iovec sits at
// offset 0, the message at 8 and nwritten at 512.
func helloGuest(msg string) testGuest {
	n := uint32(len(msg))
	data := cat([]byte{8, 0, 0, 0}, []byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}, []byte(msg))
	return testGuest{
		Import: "fd_write",
		Body: cat(
			i32Const(1), i32Const(0), i32Const(1), i32Const(512),
			[]byte{0x10}, uleb(0),
			[]byte{0x1a},
		),
		Data: data,
	}
}

func exitGuest(code int32) testGuest {
	return testGuest{
		Import: "proc_exit",
		Body:   cat(i32Const(code), []byte{0x10}, uleb(0)),
	}
}

var (
	loopGuest = testGuest{Body: []byte{0x03, 0x40, 0x0c, 0x00, 0x0b}}
	trapGuest = testGuest{Body: []byte{0x00}}
)

func wazeroInvocation(t *testing.T, guest testGuest) invoke.Invocation {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guest.wasm"), guest.bytes(), 0o644))
	return invoke.Invocation{
		Argv:      []string{"wazero", "./guest.wasm"},
		GuestPath: "./guest.wasm",
		Dir:       dir,
		Timeout:   30 * time.Second,
	}
}

func TestWazero_Success(t *testing.T) {
	inv := wazeroInvocation(t, helloGuest("Hello WASI\n"))

	out, err := NewWazero(nil).Execute(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, Success{Stdout: []byte("Hello WASI\n")}, out)
}

func TestWazero_ProcExitZero(t *testing.T) {
	inv := wazeroInvocation(t, exitGuest(0))

	out, err := NewWazero(nil).Execute(context.Background(), inv)
	require.NoError(t, err)
	require.IsType(t, Success{}, out)
	assert.Empty(t, out.(Success).Stdout)
}

func TestWazero_ProcExitNonZero(t *testing.T) {
	inv := wazeroInvocation(t, exitGuest(3))

	out, err := NewWazero(nil).Execute(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, AbnormalExit{Code: 3}, out)
}

func TestWazero_Trap(t *testing.T) {
	inv := wazeroInvocation(t, trapGuest)

	out, err := NewWazero(nil).Execute(context.Background(), inv)
	require.NoError(t, err)

	require.IsType(t, AbnormalExit{}, out)
	exit := out.(AbnormalExit)
	assert.Equal(t, TrapExitCode, exit.Code)
	assert.Contains(t, exit.Detail, "unreachable")
}

func TestWazero_Timeout(t *testing.T) {
	inv := wazeroInvocation(t, loopGuest)
	inv.Timeout = 200 * time.Millisecond

	out, err := NewWazero(nil).Execute(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, TimedOut{After: 200 * time.Millisecond}, out)
}

func TestWazero_ContextCancelled(t *testing.T) {
	inv := wazeroInvocation(t, loopGuest)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	out, err := NewWazero(nil).Execute(ctx, inv)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWazero_MissingGuest(t *testing.T) {
	inv := invoke.Invocation{GuestPath: "missing.wasm", Dir: t.TempDir(), Timeout: time.Second}

	_, err := NewWazero(nil).Execute(context.Background(), inv)

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, StageLoad, launchErr.Stage)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWazero_InvalidModule(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.wasm"), []byte("not wasm"), 0o644))
	inv := invoke.Invocation{GuestPath: "bad.wasm", Dir: dir, Timeout: time.Second}

	_, err := NewWazero(nil).Execute(context.Background(), inv)

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, StageLoad, launchErr.Stage)
}

func TestWazero_MissingStdin(t *testing.T) {
	inv := wazeroInvocation(t, helloGuest("x"))
	inv.StdinPath = "nope"

	_, err := NewWazero(nil).Execute(context.Background(), inv)

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, StageStdin, launchErr.Stage)
}
