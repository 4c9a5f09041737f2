package harness

import (
	"time"
)

// Status is the final state of one case.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// FailureKind classifies a failed case. It is empty for passed and skipped
// cases.
type FailureKind string

const (
	KindTimeout         FailureKind = "timeout"
	KindCrash           FailureKind = "crash"
	KindDigestMismatch  FailureKind = "digest_mismatch"
	KindPatternMismatch FailureKind = "pattern_mismatch"
	KindDecodeFailure   FailureKind = "decode_failure"
	KindLaunch          FailureKind = "launch"
)

// Reasons for the failure kinds that carry no diagnostic of their own.
const (
	ReasonTimeout = "Timeout"
	ReasonCrashed = "Crashed"
)

// Stats are the counters for one run.
type Stats struct {
	TotalRun int `json:"total_run"`
	Failed   int `json:"failed"`
	Crashed  int `json:"crashed"`
	Timeout  int `json:"timeout"`
	Skipped  int `json:"skipped"`
}

// Passed is the number of cases that ran and passed.
func (s Stats) Passed() int {
	return s.TotalRun - s.Failed
}

// OK reports whether no case failed.
func (s Stats) OK() bool {
	return s.Failed == 0
}

func (s *Stats) record(r CaseResult) {
	if r.Status == StatusSkipped {
		s.Skipped++
		return
	}
	s.TotalRun++
	if r.Status != StatusFailed {
		return
	}
	s.Failed++
	switch r.Kind {
	case KindTimeout:
		s.Timeout++
	case KindCrash:
		s.Crashed++
	}
}

// CaseResult is the classified result of one case.
type CaseResult struct {
	Name   string      `json:"name"`
	Status Status      `json:"status"`
	Kind   FailureKind `json:"kind,omitempty"`

	// Reason is set for failed cases, and for skipped cases when known.
	Reason string `json:"reason,omitempty"`

	// Command is the displayed command line; empty for skipped cases.
	Command string `json:"command,omitempty"`

	// ExitCode is the runtime's exit status for crash failures.
	ExitCode int `json:"exit_code,omitempty"`

	Duration time.Duration `json:"duration_ns"`

	// OutputSHA1 and OutputBytes describe stdout of runs that exited zero.
	OutputSHA1  string `json:"output_sha1,omitempty"`
	OutputBytes int    `json:"output_bytes"`
}

// Passed reports whether the case passed.
func (r CaseResult) Passed() bool {
	return r.Status == StatusPassed
}

// Summary is everything one run produced.
type Summary struct {
	RunID     string `json:"run_id"`
	Suite     string `json:"suite"`
	SuiteHash string `json:"suite_hash"`

	// Runtime is the runtime command line; Engine is "process" or "wazero".
	Runtime string `json:"runtime"`
	Engine  string `json:"engine"`

	Stats Stats        `json:"stats"`
	Cases []CaseResult `json:"cases"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Passed reports whether every case that ran passed.
func (s *Summary) Passed() bool {
	return s.Stats.OK()
}

// ExitCode maps the summary to the process exit status: 0 when every case
// that ran passed, 1 otherwise.
func (s *Summary) ExitCode() int {
	if s.Passed() {
		return 0
	}
	return 1
}
