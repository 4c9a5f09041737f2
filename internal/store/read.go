package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/wasitest/internal/harness"
)

// Run is one row of run history.
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Runtime   string
	Engine    string
	Suite     string
	SuiteHash string
	Stats     harness.Stats
	Passed    bool
}

const runColumns = `id, started_at, duration_ms, runtime, engine, suite, suite_hash,
	total_run, failed, crashed, timeout, skipped, passed`

// Runs returns up to limit runs, newest first. A limit of zero or less
// returns every run.
//
// Returns an empty slice (not nil) if no runs are recorded.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, sqlLimit(limit))
}

// RunsForSuite is Runs restricted to one suite fingerprint.
func (s *Store) RunsForSuite(ctx context.Context, suiteHash string, limit int) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE suite_hash = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, suiteHash, sqlLimit(limit))
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// CaseResults returns the case results of a run in suite order.
//
// Returns an empty slice (not nil) if the run has no results or does not
// exist.
func (s *Store) CaseResults(ctx context.Context, runID string) ([]harness.CaseResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, status, kind, reason, command, exit_code, duration_ms, output_sha1, output_bytes
		FROM case_results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query case results: %w", err)
	}
	defer rows.Close()

	results := []harness.CaseResult{}
	for rows.Next() {
		var (
			r          harness.CaseResult
			status     string
			kind       string
			durationMS int64
		)
		if err := rows.Scan(&r.Name, &status, &kind, &r.Reason, &r.Command, &r.ExitCode,
			&durationMS, &r.OutputSHA1, &r.OutputBytes); err != nil {
			return nil, fmt.Errorf("scan case result: %w", err)
		}
		r.Status = harness.Status(status)
		r.Kind = harness.FailureKind(kind)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case results: %w", err)
	}
	return results, nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		startedAt  string
		durationMS int64
	)
	err := row.Scan(&run.ID, &startedAt, &durationMS, &run.Runtime, &run.Engine, &run.Suite, &run.SuiteHash,
		&run.Stats.TotalRun, &run.Stats.Failed, &run.Stats.Crashed, &run.Stats.Timeout, &run.Stats.Skipped,
		&run.Passed)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return Run{}, err
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}

// sqlLimit maps "no limit" to SQLite's LIMIT -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
