// Package harness runs a suite of cases against one runtime and classifies
// every run.
//
// # Case lifecycle
//
// Each case ends in exactly one of three states:
//
//   - skipped: the case is marked skip, or a file it requires is missing.
//     Skipped cases do not count toward TotalRun.
//   - passed: the runtime exited zero and its stdout met the expectation.
//   - failed: anything else, with a FailureKind and a human-readable reason.
//
// Failure kinds and their reasons:
//
//	timeout           "Timeout"
//	crash             "Crashed"
//	digest_mismatch   "Actual sha1: <hex>"
//	pattern_mismatch  "Output does not match pattern"
//	decode_failure    "Output is not valid UTF-8"
//	launch            the launch error, e.g. "cannot open stdin ..."
//
// # Stats
//
// Stats are owned by the Harness for the duration of Run and returned in the
// Summary; nothing is global. Every failure increments Failed, and timeouts
// and crashes additionally increment their own counter, so Failed is always
// at least Crashed and at least Timeout.
//
// # Streaming
//
// Cases run strictly in declared order, one child at a time. Observers hear
// about each case as it starts and finishes, so reports stream while the
// suite is running rather than appearing at the end.
//
// # Deterministic Testing
//
// The clock and run ID generator are injectable (see Options). Tests use
// testutil.StepClock and testutil.FixedIDGenerator so summaries compare
// byte-for-byte against golden files.
package harness
