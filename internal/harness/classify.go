package harness

import (
	"github.com/roach88/wasitest/internal/executor"
	"github.com/roach88/wasitest/internal/match"
)

var mismatchKinds = map[match.Mismatch]FailureKind{
	match.DigestMismatch:  KindDigestMismatch,
	match.PatternMismatch: KindPatternMismatch,
	match.DecodeFailure:   KindDecodeFailure,
}

// Classify turns an outcome into a verdict for a case expecting exp.
// Name, Command and Duration are left for the caller to fill in.
//
// Output is only verified for runs that exited zero: a crash or timeout
// fails the case regardless of what it printed.
func Classify(exp match.Expectation, out executor.Outcome) CaseResult {
	switch o := out.(type) {
	case executor.TimedOut:
		return CaseResult{Status: StatusFailed, Kind: KindTimeout, Reason: ReasonTimeout}
	case executor.AbnormalExit:
		return CaseResult{Status: StatusFailed, Kind: KindCrash, Reason: ReasonCrashed, ExitCode: o.Code}
	case executor.Success:
		r := CaseResult{
			Status:      StatusPassed,
			OutputSHA1:  match.SHA1Hex(o.Stdout),
			OutputBytes: len(o.Stdout),
		}
		v := match.Verify(exp, o.Stdout)
		if !v.Pass {
			r.Status = StatusFailed
			r.Kind = mismatchKinds[v.Mismatch]
			r.Reason = v.Reason
		}
		return r
	default:
		panic("harness: unknown outcome type")
	}
}
