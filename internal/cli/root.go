package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/wasitest/internal/harness"
	"github.com/roach88/wasitest/internal/invoke"
)

// Defaults for the runtime flags.
const (
	DefaultExec    = "../build/wasm3"
	DefaultTimeout = 120
)

// RootOptions holds every flag of the command.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	NoColor bool

	Exec      string
	Timeout   int // seconds per case
	Suite     string
	Dir       string
	Engine    string
	Separator string
	Filter    string
	Database  string

	// IDGenerator overrides the run ID generator (for testing).
	// If nil, defaults to harness.UUIDv7Generator.
	IDGenerator harness.IDGenerator

	// Clock overrides the harness clock (for testing).
	Clock harness.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidEngines defines the allowed execution engines.
var ValidEngines = []string{harness.EngineProcess, harness.EngineWazero}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wasitest",
		Short: "Run a WASI conformance suite against a WebAssembly runtime",
		Long: `Run a suite of WASI test programs through a WebAssembly runtime and
check each program's stdout against a wildcard pattern or a SHA-1 digest.

Without --suite the built-in suite is used, with guest paths relative to
--dir (default: the current directory).

Exit codes:
  0   - All cases that ran passed
  1   - One or more cases failed (mismatch, crash, timeout, launch error)
  2   - Command error (bad flags, unloadable suite, database error)
  130 - Interrupted

Examples:
  wasitest
  wasitest --exec "wasmtime run --dir=." --timeout 300
  wasitest --suite ./suites/wasi.yaml --filter "Simple*"
  wasitest --engine wazero --format json
  wasitest --db ./history.db`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("unexpected arguments: %v", args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOptions(opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, cmd)
		},
	}

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	flags.StringVar(&opts.Exec, "exec", DefaultExec, "runtime command line (shell quoting, $VARS and ~ are expanded; globs are not)")
	flags.IntVar(&opts.Timeout, "timeout", DefaultTimeout, "per-case timeout in seconds")
	flags.StringVar(&opts.Suite, "suite", "", "suite file (.yaml, .yml or .cue); default: built-in suite")
	flags.StringVar(&opts.Dir, "dir", "", "directory guest paths are relative to (default: suite file directory, or current directory)")
	flags.StringVar(&opts.Engine, "engine", harness.EngineProcess, "execution engine (process|wazero)")
	flags.StringVar(&opts.Separator, "separator", "auto", "insert -- before guest args (auto|always|never)")
	flags.StringVar(&opts.Filter, "filter", "", "only run cases whose name matches this wildcard pattern")
	flags.StringVar(&opts.Database, "db", "", "record run history in this SQLite database")

	return cmd
}

// validateOptions checks enumerated and numeric flags before anything runs.
func validateOptions(opts *RootOptions) error {
	if !slices.Contains(ValidFormats, opts.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
	}
	if !slices.Contains(ValidEngines, opts.Engine) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid engine %q: must be one of %v", opts.Engine, ValidEngines))
	}
	if _, err := invoke.ParseSeparatorMode(opts.Separator); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	if opts.Timeout <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid timeout %d: must be a positive number of seconds", opts.Timeout))
	}
	return nil
}

// Execute runs the command with args and returns the process exit code.
//
// Errors are written to stderr, or as a JSON error response to stdout when
// --format json was requested. Case failures have already been reported by
// the time Execute returns, so they only produce the exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	code := GetExitCode(err)
	if err == nil || errors.Is(err, errCasesFailed) {
		return code
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr, Verbose: opts.Verbose}
	if formatter.Format != "json" {
		formatter.Format = "text"
	}
	_ = formatter.Error(errorCode(code), err.Error(), nil)
	return code
}
