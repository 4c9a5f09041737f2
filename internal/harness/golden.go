package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/wasitest/internal/canon"
)

// Snapshot returns the deterministic part of a summary as a canonical JSON
// value. Run ID, timestamps, durations and the suite hash are left out so
// the snapshot only changes when behaviour does.
func (s *Summary) Snapshot() map[string]any {
	cases := make([]any, len(s.Cases))
	for i, r := range s.Cases {
		m := map[string]any{
			"name":         r.Name,
			"status":       string(r.Status),
			"output_bytes": r.OutputBytes,
		}
		if r.Kind != "" {
			m["kind"] = string(r.Kind)
		}
		if r.Reason != "" {
			m["reason"] = r.Reason
		}
		if r.Command != "" {
			m["command"] = r.Command
		}
		if r.ExitCode != 0 {
			m["exit_code"] = r.ExitCode
		}
		if r.OutputSHA1 != "" {
			m["output_sha1"] = r.OutputSHA1
		}
		cases[i] = m
	}

	return map[string]any{
		"suite":   s.Suite,
		"runtime": s.Runtime,
		"engine":  s.Engine,
		"stats": map[string]any{
			"total_run": s.Stats.TotalRun,
			"failed":    s.Stats.Failed,
			"crashed":   s.Stats.Crashed,
			"timeout":   s.Stats.Timeout,
			"skipped":   s.Stats.Skipped,
		},
		"cases": cases,
	}
}

// AssertGolden compares the summary's snapshot against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, s *Summary) error {
	t.Helper()

	data, err := canon.Marshal(s.Snapshot())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
