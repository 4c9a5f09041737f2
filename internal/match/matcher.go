// Package match verifies captured guest output against a case expectation.
//
// Two modes exist and they are mutually exclusive per case:
//
//   - Digest: SHA-1 over the raw stdout bytes, compared as lowercase hex.
//     The bytes are never normalized (no newline translation, no decoding).
//   - Pattern: stdout is decoded as UTF-8 and matched against an anchored
//     wildcard pattern (see Wildcard).
//
// Verify is a pure function; it holds no state between calls.
package match

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// Mismatch classifies why verification failed.
type Mismatch string

const (
	DigestMismatch  Mismatch = "digest_mismatch"
	PatternMismatch Mismatch = "pattern_mismatch"
	DecodeFailure   Mismatch = "decode_failure"
)

// Reasons reported for pattern failures.
const (
	ReasonPatternMismatch = "Output does not match pattern"
	ReasonDecodeFailure   = "Output is not valid UTF-8"
)

// Verdict is the outcome of verifying one output.
type Verdict struct {
	Pass bool

	// Mismatch and Reason are set only when Pass is false.
	Mismatch Mismatch
	Reason   string
}

// Verify checks output against exp.
func Verify(exp Expectation, output []byte) Verdict {
	switch e := exp.(type) {
	case Digest:
		return verifyDigest(e, output)
	case Pattern:
		return verifyPattern(e, output)
	default:
		// Unreachable for cases produced by the suite loader.
		return Verdict{
			Mismatch: PatternMismatch,
			Reason:   fmt.Sprintf("unsupported expectation %T", exp),
		}
	}
}

// SHA1Hex returns the lowercase hex SHA-1 of data.
func SHA1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func verifyDigest(d Digest, output []byte) Verdict {
	actual := SHA1Hex(output)
	if actual == d.Hex {
		return Verdict{Pass: true}
	}
	return Verdict{
		Mismatch: DigestMismatch,
		Reason:   fmt.Sprintf("Actual %s: %s", d.Algorithm, actual),
	}
}

func verifyPattern(p Pattern, output []byte) Verdict {
	if !utf8.Valid(output) {
		return Verdict{Mismatch: DecodeFailure, Reason: ReasonDecodeFailure}
	}
	if !Wildcard(p.Text, string(output)) {
		return Verdict{Mismatch: PatternMismatch, Reason: ReasonPatternMismatch}
	}
	return Verdict{Pass: true}
}
