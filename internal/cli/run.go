package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/wasitest/internal/executor"
	"github.com/roach88/wasitest/internal/harness"
	"github.com/roach88/wasitest/internal/invoke"
	"github.com/roach88/wasitest/internal/report"
	"github.com/roach88/wasitest/internal/store"
	"github.com/roach88/wasitest/internal/suite"
)

// errCasesFailed is wrapped by the ExitError returned when the suite ran to
// completion with failures. The report already says so; nothing else needs
// printing.
var errCasesFailed = errors.New("cases failed")

func runSuite(opts *RootOptions, cmd *cobra.Command) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	formatter := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr, Verbose: opts.Verbose}

	s, err := loadSuite(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load suite", err)
	}
	total := len(s.Cases)
	s = s.Filter(opts.Filter)
	if len(s.Cases) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("filter %q matches no cases", opts.Filter))
	}
	formatter.VerboseLog("suite %s: %d of %d case(s) selected (hash %s)", s.Name, len(s.Cases), total, s.Hash)

	rt, exec, err := resolveEngine(opts, stderr)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid runtime", err)
	}

	var st *store.Store
	if opts.Database != "" {
		logger.Debug("opening database", "path", opts.Database)
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	var (
		observer harness.Observer
		jsonOut  *report.JSON
	)
	if opts.Format == "json" {
		jsonOut = report.NewJSON(stdout)
		observer = jsonOut
	} else {
		observer = report.NewText(stdout, report.TextOptions{
			Color:       useColor(opts, stdout),
			ShowSkipped: opts.Verbose,
		})
	}

	h := harness.New(rt, exec, harness.Options{
		Logger:   logger,
		Clock:    opts.Clock,
		IDs:      opts.IDGenerator,
		Observer: observer,
		Engine:   opts.Engine,
	})

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	sum, err := h.Run(ctx, s)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return WrapExitError(ExitInterrupted, "interrupted", err)
		}
		return WrapExitError(ExitCommandError, "run failed", err)
	}
	if jsonOut != nil && jsonOut.Err() != nil {
		return WrapExitError(ExitCommandError, "failed to write report", jsonOut.Err())
	}

	if st != nil {
		if err := recordRun(st, sum, logger); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}

	if !sum.Passed() {
		return WrapExitError(ExitFailure,
			fmt.Sprintf("%d/%d case(s) failed", sum.Stats.Failed, sum.Stats.TotalRun), errCasesFailed)
	}
	return nil
}

// loadSuite loads --suite, or the built-in suite when it is not set.
func loadSuite(opts *RootOptions) (*suite.Suite, error) {
	if opts.Suite != "" {
		return suite.Load(opts.Suite, opts.Dir)
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	return suite.LoadDefault(dir)
}

// resolveEngine builds the runtime description and the executor for
// --engine. The wazero engine runs guests in-process, so --exec and
// --separator do not apply to it.
func resolveEngine(opts *RootOptions, stderr io.Writer) (*invoke.Runtime, executor.Executor, error) {
	timeout := time.Duration(opts.Timeout) * time.Second

	if opts.Engine == harness.EngineWazero {
		rt, err := invoke.NewRuntime(harness.EngineWazero, invoke.SeparatorNever, timeout)
		if err != nil {
			return nil, nil, err
		}
		return rt, executor.NewWazero(stderr), nil
	}

	mode, err := invoke.ParseSeparatorMode(opts.Separator)
	if err != nil {
		return nil, nil, err
	}
	rt, err := invoke.NewRuntime(opts.Exec, mode, timeout)
	if err != nil {
		return nil, nil, err
	}
	return rt, executor.NewProcess(stderr), nil
}

// recordRun stores the run and logs how the previous run of the same suite
// went, naming the cases that failed in it.
func recordRun(st *store.Store, sum *harness.Summary, logger *slog.Logger) error {
	// The run context may already be done; recording must still happen.
	ctx := context.Background()

	previous, err := st.RunsForSuite(ctx, sum.SuiteHash, 1)
	if err != nil {
		return err
	}
	if err := st.RecordRun(ctx, sum); err != nil {
		return err
	}

	logger.Debug("run recorded", "run_id", sum.RunID)
	if len(previous) == 0 {
		return nil
	}
	prev := previous[0]
	results, err := st.CaseResults(ctx, prev.ID)
	if err != nil {
		return err
	}
	var failedCases []string
	for _, r := range results {
		if r.Status == harness.StatusFailed {
			failedCases = append(failedCases, r.Name)
		}
	}
	logger.Info("previous run of this suite",
		"run_id", prev.ID,
		"started_at", prev.StartedAt.Format(time.RFC3339),
		"runtime", prev.Runtime,
		"failed", prev.Stats.Failed,
		"total_run", prev.Stats.TotalRun,
		"failed_cases", strings.Join(failedCases, ","))
	return nil
}

// useColor reports whether ANSI colors should be written to w.
func useColor(opts *RootOptions, w io.Writer) bool {
	if opts.NoColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
