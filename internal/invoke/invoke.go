// Package invoke turns a test case into the concrete command line that runs
// it under the runtime being tested.
package invoke

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"github.com/roach88/wasitest/internal/suite"
)

// ArgSeparator is inserted between the guest path and the guest's own
// arguments for runtimes that would otherwise parse them as their flags.
const ArgSeparator = "--"

// SeparatorMode controls whether ArgSeparator is inserted.
type SeparatorMode int

const (
	// SeparatorAuto inserts the separator for runtimes known to need it.
	SeparatorAuto SeparatorMode = iota
	SeparatorAlways
	SeparatorNever
)

// ValidSeparatorModes lists the accepted --separator values.
var ValidSeparatorModes = []string{"auto", "always", "never"}

// ParseSeparatorMode parses a --separator flag value.
func ParseSeparatorMode(s string) (SeparatorMode, error) {
	switch s {
	case "auto", "":
		return SeparatorAuto, nil
	case "always":
		return SeparatorAlways, nil
	case "never":
		return SeparatorNever, nil
	default:
		return 0, fmt.Errorf("invalid separator mode %q: must be one of %v", s, ValidSeparatorModes)
	}
}

func (m SeparatorMode) String() string {
	switch m {
	case SeparatorAlways:
		return "always"
	case SeparatorNever:
		return "never"
	default:
		return "auto"
	}
}

// separatorRuntimes are runtime names whose CLIs take guest arguments only
// after "--".
var separatorRuntimes = []string{"wasmer", "wasmtime"}

// NeedsSeparator reports whether a runtime command line refers to one of the
// runtimes that require ArgSeparator.
func NeedsSeparator(command string) bool {
	for _, name := range separatorRuntimes {
		if strings.Contains(command, name) {
			return true
		}
	}
	return false
}

// Runtime is the runtime under test, resolved once at startup.
type Runtime struct {
	// Command is the command line as configured.
	Command string

	// Tokens is Command split into words. The first token is the program.
	Tokens []string

	// Separator reports whether ArgSeparator precedes non-empty guest args.
	Separator bool

	// Timeout bounds every run.
	Timeout time.Duration
}

// NewRuntime splits command with shell word rules and resolves the separator
// mode against it. Quotes, $VARS, ~ and braces are honored, so
// "wasmer run --dir=." and "'/opt/my runtime/wasm3'" both work. Globs are
// not expanded: "*.wasm" stays a literal word.
func NewRuntime(command string, mode SeparatorMode, timeout time.Duration) (*Runtime, error) {
	tokens, err := splitCommand(command)
	if err != nil {
		return nil, fmt.Errorf("parsing runtime command %q: %w", command, err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("runtime command is empty")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", timeout)
	}

	sep := false
	switch mode {
	case SeparatorAlways:
		sep = true
	case SeparatorAuto:
		sep = NeedsSeparator(command)
	}

	return &Runtime{
		Command:   command,
		Tokens:    tokens,
		Separator: sep,
		Timeout:   timeout,
	}, nil
}

// splitCommand expands command as the words of one shell command, with
// globbing disabled.
func splitCommand(command string) ([]string, error) {
	var words []*syntax.Word
	err := syntax.NewParser().Words(strings.NewReader(command), func(w *syntax.Word) bool {
		words = append(words, w)
		return true
	})
	if err != nil {
		return nil, err
	}
	cfg := &expand.Config{Env: expand.FuncEnviron(os.Getenv)}
	return expand.Fields(cfg, words...)
}

// Invocation is everything needed to run one case. It is built fresh for
// each case and never persisted.
type Invocation struct {
	// Argv is runtime tokens ++ guest path ++ [separator] ++ guest args.
	Argv []string

	GuestPath string
	GuestArgs []string

	// StdinPath is empty when the guest gets no stdin.
	StdinPath string

	// Dir is the working directory for the run.
	Dir string

	Timeout time.Duration
}

// Build produces the invocation for c. It has no side effects; bad paths
// only surface when the invocation is executed.
func (r *Runtime) Build(c suite.Case, dir string) Invocation {
	argv := make([]string, 0, len(r.Tokens)+2+len(c.Args))
	argv = append(argv, r.Tokens...)
	argv = append(argv, c.Wasm)
	if r.Separator && len(c.Args) > 0 {
		argv = append(argv, ArgSeparator)
	}
	argv = append(argv, c.Args...)

	return Invocation{
		Argv:      argv,
		GuestPath: c.Wasm,
		GuestArgs: append([]string(nil), c.Args...),
		StdinPath: c.Stdin,
		Dir:       dir,
		Timeout:   r.Timeout,
	}
}

// ResolvedStdin returns StdinPath joined to Dir when it is relative.
func (inv Invocation) ResolvedStdin() string {
	if inv.StdinPath == "" || filepath.IsAbs(inv.StdinPath) {
		return inv.StdinPath
	}
	return filepath.Join(inv.Dir, inv.StdinPath)
}

// CommandLine renders the invocation the way a user would type it,
// including the stdin pipe when one is used:
//
//	cat ./benchmark/c-ray/scene | ../build/wasm3 ./benchmark/c-ray/c-ray.wasm -s 128x128
func (inv Invocation) CommandLine() string {
	words := make([]string, len(inv.Argv))
	for i, arg := range inv.Argv {
		words[i] = quote(arg)
	}
	line := strings.Join(words, " ")
	if inv.StdinPath != "" {
		line = "cat " + quote(inv.StdinPath) + " | " + line
	}
	return line
}

func quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return q
}
