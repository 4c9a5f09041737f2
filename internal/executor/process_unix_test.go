//go:build linux

package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// grandchildPID reads the pid spawn.wasm recorded in dir.
func grandchildPID(t *testing.T, dir string) int {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "grandchild.pid"))
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	t.Cleanup(func() {
		if !processGone(pid) {
			_ = unix.Kill(pid, unix.SIGKILL)
		}
	})
	return pid
}

// processGone reports whether pid has exited. A zombie waiting for its new
// parent to reap it counts as gone.
func processGone(pid int) bool {
	if errors.Is(unix.Kill(pid, 0), unix.ESRCH) {
		return true
	}
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return true
	}
	// The state field follows the parenthesised command name.
	i := bytes.LastIndexByte(stat, ')')
	return i >= 0 && i+2 < len(stat) && stat[i+2] == 'Z'
}

func TestProcess_CleanExitWithGrandchildHoldingStdout(t *testing.T) {
	inv := fakeInvocation(t, "spawn.wasm", "grandchild.pid", "exit")
	p := &Process{WaitDelay: 300 * time.Millisecond}

	start := time.Now()
	out, err := p.Execute(context.Background(), inv)
	require.NoError(t, err)

	assert.Equal(t, Success{Stdout: []byte("spawned\n")}, out)
	assert.Less(t, time.Since(start), 10*time.Second)

	pid := grandchildPID(t, inv.Dir)
	assert.Eventually(t, func() bool { return processGone(pid) },
		5*time.Second, 20*time.Millisecond, "grandchild outlived the case")
}

func TestProcess_TimeoutKillsProcessGroup(t *testing.T) {
	inv := fakeInvocation(t, "spawn.wasm", "grandchild.pid", "hang")
	inv.Timeout = 2 * time.Second
	// Long enough that only a group kill can end the run before it.
	p := &Process{WaitDelay: 20 * time.Second}

	start := time.Now()
	out, err := p.Execute(context.Background(), inv)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Equal(t, TimedOut{After: 2 * time.Second}, out)
	assert.Less(t, elapsed, 15*time.Second, "grandchild kept stdout open until WaitDelay")

	pid := grandchildPID(t, inv.Dir)
	assert.Eventually(t, func() bool { return processGone(pid) },
		5*time.Second, 20*time.Millisecond, "grandchild survived the timeout")
}
