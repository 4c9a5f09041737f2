package match

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Expectation is the verification rule attached to a test case.
// It is sealed: Pattern and Digest are the only implementations, so a case
// can never carry both or neither.
type Expectation interface {
	// Kind returns "pattern" or "sha1".
	Kind() string

	// String renders the expectation literal.
	String() string

	expectation()
}

// Pattern expects stdout to match a wildcard pattern over the whole output.
type Pattern struct {
	Text string
}

func (Pattern) Kind() string     { return "pattern" }
func (p Pattern) String() string { return p.Text }
func (Pattern) expectation()     {}

// Algorithm names a digest algorithm.
type Algorithm string

// SHA1 is the only digest algorithm suites use today.
const SHA1 Algorithm = "sha1"

// Digest expects the digest of the raw stdout bytes to equal Hex.
type Digest struct {
	Algorithm Algorithm
	Hex       string // lowercase
}

func (d Digest) Kind() string   { return string(d.Algorithm) }
func (d Digest) String() string { return d.Hex }
func (Digest) expectation()     {}

// sha1HexLen is the length of a hex-encoded 160-bit digest.
const sha1HexLen = 40

// NewSHA1Digest validates a hex literal and returns a SHA-1 Digest.
// Upper-case input is accepted and stored lowercase.
func NewSHA1Digest(literal string) (Digest, error) {
	lower := strings.ToLower(strings.TrimSpace(literal))
	if len(lower) != sha1HexLen {
		return Digest{}, fmt.Errorf("sha1 digest must be %d hex characters, got %d", sha1HexLen, len(lower))
	}
	if _, err := hex.DecodeString(lower); err != nil {
		return Digest{}, fmt.Errorf("sha1 digest is not hexadecimal: %w", err)
	}
	return Digest{Algorithm: SHA1, Hex: lower}, nil
}
