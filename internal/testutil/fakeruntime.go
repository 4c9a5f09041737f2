package testutil

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"mvdan.cc/sh/v3/syntax"
)

// FakeRuntimeEnv switches a re-executed test binary into fake runtime mode.
const FakeRuntimeEnv = "WASITEST_FAKE_RUNTIME"

// FakeHello is what the fake runtime prints for hello.wasm.
const FakeHello = "Hello, world!\n"

// MaybeRunFakeRuntime turns the current process into a fake WASI runtime
// when FakeRuntimeEnv is set, and exits. Call it first thing in TestMain:
//
//	func TestMain(m *testing.M) {
//		testutil.MaybeRunFakeRuntime()
//		os.Exit(m.Run())
//	}
//
// The fake dispatches on the base name of its first argument:
//
//	hello.wasm     prints FakeHello
//	echo.wasm      prints its remaining arguments joined by spaces
//	cat.wasm       copies stdin to stdout
//	exit.wasm N    prints "partial\n" and exits with status N
//	hang.wasm      sleeps for an hour
//	stderr.wasm    writes one line to each of stdout and stderr
//	pwd.wasm       prints its working directory
//	binary.wasm    prints bytes that are not valid UTF-8
//	spawn.wasm F M starts a background hang.wasm that shares its stdout,
//	               writes that process's pid to file F, prints "spawned\n"
//	               and then exits 0 (M = exit) or hangs (M = hang)
//
// Anything else exits 127 with a message on stderr.
func MaybeRunFakeRuntime() {
	if os.Getenv(FakeRuntimeEnv) == "" {
		return
	}
	os.Exit(fakeRuntime(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func fakeRuntime(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "fake runtime: no guest")
		return 127
	}
	guest, rest := filepath.Base(args[0]), args[1:]

	switch guest {
	case "hello.wasm":
		fmt.Fprint(stdout, FakeHello)
	case "echo.wasm":
		fmt.Fprintln(stdout, strings.Join(rest, " "))
	case "cat.wasm":
		if _, err := io.Copy(stdout, stdin); err != nil {
			fmt.Fprintln(stderr, "fake runtime:", err)
			return 1
		}
	case "exit.wasm":
		code := 1
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err != nil {
				fmt.Fprintln(stderr, "fake runtime:", err)
				return 1
			}
			code = n
		}
		fmt.Fprint(stdout, "partial\n")
		return code
	case "hang.wasm":
		time.Sleep(time.Hour)
	case "stderr.wasm":
		fmt.Fprintln(stdout, "to stdout")
		fmt.Fprintln(stderr, "to stderr")
	case "pwd.wasm":
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(stderr, "fake runtime:", err)
			return 1
		}
		fmt.Fprintln(stdout, wd)
	case "binary.wasm":
		_, _ = stdout.Write([]byte{0xff, 0xfe, 'o', 'k', 0x00})
	case "spawn.wasm":
		if len(rest) != 2 {
			fmt.Fprintln(stderr, "fake runtime: spawn.wasm needs a pid file and exit|hang")
			return 1
		}
		if err := spawnHanger(rest[0], stdout); err != nil {
			fmt.Fprintln(stderr, "fake runtime:", err)
			return 1
		}
		fmt.Fprint(stdout, "spawned\n")
		if rest[1] == "hang" {
			time.Sleep(time.Hour)
		}
	default:
		fmt.Fprintf(stderr, "fake runtime: unknown guest %q\n", guest)
		return 127
	}
	return 0
}

// spawnHanger starts this binary as hang.wasm in the background with stdout
// inherited, and records its pid in pidFile. The process is never waited
// for; it outlives the fake runtime unless someone kills it.
func spawnHanger(pidFile string, stdout io.Writer) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(exe, "hang.wasm")
	cmd.Stdout = stdout
	if err := cmd.Start(); err != nil {
		return err
	}
	return os.WriteFile(pidFile, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644)
}

// FakeRuntimeCommand returns a runtime command line that re-executes the
// running test binary as the fake runtime. The environment switch is set
// with t.Setenv, so the calling test must not be parallel.
func FakeRuntimeCommand(t testing.TB) string {
	t.Helper()
	t.Setenv(FakeRuntimeEnv, "1")

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	q, err := syntax.Quote(exe, syntax.LangBash)
	if err != nil {
		t.Fatalf("quoting %s: %v", exe, err)
	}
	return q
}

// FakeRuntimeArgv is FakeRuntimeCommand as an argv prefix, for tests that
// build invocations by hand.
func FakeRuntimeArgv(t testing.TB) []string {
	t.Helper()
	t.Setenv(FakeRuntimeEnv, "1")

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return []string{exe}
}
