package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/wasitest/internal/harness"
)

// timeLayout stores timestamps as sortable UTC text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordRun stores a completed run and all of its case results in one
// transaction. Recording the same run ID twice is an error.
func (s *Store) RecordRun(ctx context.Context, sum *harness.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	st := sum.Stats
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, duration_ms, runtime, engine, suite, suite_hash,
		 total_run, failed, crashed, timeout, skipped, passed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sum.RunID,
		sum.StartedAt.UTC().Format(timeLayout),
		sum.Duration.Milliseconds(),
		sum.Runtime,
		sum.Engine,
		sum.Suite,
		sum.SuiteHash,
		st.TotalRun,
		st.Failed,
		st.Crashed,
		st.Timeout,
		st.Skipped,
		sum.Passed(),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", sum.RunID, err)
	}

	for i, r := range sum.Cases {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO case_results
			(run_id, seq, name, status, kind, reason, command, exit_code,
			 duration_ms, output_sha1, output_bytes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			sum.RunID,
			i,
			r.Name,
			string(r.Status),
			string(r.Kind),
			r.Reason,
			r.Command,
			r.ExitCode,
			r.Duration.Milliseconds(),
			r.OutputSHA1,
			r.OutputBytes,
		)
		if err != nil {
			return fmt.Errorf("record case %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: commit: %w", err)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse started_at %q: %w", s, err)
	}
	return t, nil
}
