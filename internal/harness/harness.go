package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/wasitest/internal/executor"
	"github.com/roach88/wasitest/internal/invoke"
	"github.com/roach88/wasitest/internal/suite"
)

// Engine names recorded in summaries.
const (
	EngineProcess = "process"
	EngineWazero  = "wazero"
)

// Options configures a Harness. Zero values select production defaults.
type Options struct {
	// Logger receives per-case debug logs. Defaults to discarding them.
	Logger *slog.Logger

	// Clock defaults to SystemClock.
	Clock Clock

	// IDs defaults to UUIDv7Generator.
	IDs IDGenerator

	// Observer receives streaming events. Optional.
	Observer Observer

	// Engine is recorded in the summary. Defaults to EngineProcess.
	Engine string
}

// Harness runs suites against one runtime through one executor.
type Harness struct {
	runtime  *invoke.Runtime
	exec     executor.Executor
	logger   *slog.Logger
	clock    Clock
	ids      IDGenerator
	observer Observer
	engine   string
}

// New creates a Harness.
func New(rt *invoke.Runtime, exec executor.Executor, opts Options) *Harness {
	h := &Harness{
		runtime:  rt,
		exec:     exec,
		logger:   opts.Logger,
		clock:    opts.Clock,
		ids:      opts.IDs,
		observer: opts.Observer,
		engine:   opts.Engine,
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if h.clock == nil {
		h.clock = SystemClock{}
	}
	if h.ids == nil {
		h.ids = UUIDv7Generator{}
	}
	if h.observer == nil {
		h.observer = Observers(nil)
	}
	if h.engine == "" {
		h.engine = EngineProcess
	}
	return h
}

// Run executes every case of s in order and returns the summary.
//
// Case failures never abort the run. The only error is ctx being cancelled,
// in which case the in-flight child has been killed and Run returns the
// partial summary together with ctx.Err(); Finished is not called.
func (h *Harness) Run(ctx context.Context, s *suite.Suite) (*Summary, error) {
	sum := &Summary{
		RunID:     h.ids.Generate(),
		Suite:     s.Name,
		SuiteHash: s.Hash,
		Runtime:   h.runtime.Command,
		Engine:    h.engine,
		Cases:     make([]CaseResult, 0, len(s.Cases)),
		StartedAt: h.clock.Now(),
	}

	h.logger.Debug("starting run",
		"run_id", sum.RunID,
		"suite", s.Name,
		"cases", len(s.Cases),
		"runtime", sum.Runtime,
		"engine", sum.Engine)

	for _, c := range s.Cases {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		r, err := h.RunCase(ctx, s.BaseDir, c)
		if err != nil {
			return sum, err
		}
		sum.Stats.record(r)
		sum.Cases = append(sum.Cases, r)
		h.observer.CaseFinished(r)
	}

	sum.Duration = h.clock.Now().Sub(sum.StartedAt)
	h.logger.Debug("run finished",
		"run_id", sum.RunID,
		"total_run", sum.Stats.TotalRun,
		"failed", sum.Stats.Failed,
		"duration", sum.Duration)
	h.observer.Finished(sum)
	return sum, nil
}

// RunCase runs one case with baseDir as its working directory. It returns an
// error only when ctx is cancelled.
func (h *Harness) RunCase(ctx context.Context, baseDir string, c suite.Case) (CaseResult, error) {
	if reason, skip := skipReason(c, baseDir); skip {
		h.logger.Debug("skipping case", "case", c.Name, "reason", reason)
		return CaseResult{Name: c.Name, Status: StatusSkipped, Reason: reason}, nil
	}

	inv := h.runtime.Build(c, baseDir)
	command := inv.CommandLine()
	h.observer.CaseStarted(c.Name, command)
	h.logger.Debug("running case", "case", c.Name, "argv", inv.Argv, "stdin", inv.StdinPath)

	start := h.clock.Now()
	out, err := h.exec.Execute(ctx, inv)
	duration := h.clock.Now().Sub(start)

	if err != nil {
		if ctx.Err() != nil {
			return CaseResult{}, ctx.Err()
		}
		h.logger.Warn("case could not be launched", "case", c.Name, "error", err)
		return CaseResult{
			Name:     c.Name,
			Status:   StatusFailed,
			Kind:     KindLaunch,
			Reason:   err.Error(),
			Command:  command,
			Duration: duration,
		}, nil
	}

	r := Classify(c.Expect, out)
	r.Name = c.Name
	r.Command = command
	r.Duration = duration

	h.logger.Debug("case finished",
		"case", c.Name,
		"status", r.Status,
		"outcome", executor.Describe(out),
		"duration", duration)
	return r, nil
}

func skipReason(c suite.Case, baseDir string) (string, bool) {
	if c.Skip {
		return c.SkipReason, true
	}
	if missing := c.MissingRequirements(baseDir); len(missing) > 0 {
		return fmt.Sprintf("missing required file: %s", strings.Join(missing, ", ")), true
	}
	return "", false
}
