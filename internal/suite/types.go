package suite

import (
	"os"
	"path/filepath"

	"github.com/roach88/wasitest/internal/canon"
	"github.com/roach88/wasitest/internal/match"
)

// Case is one immutable test case: one guest program, one invocation,
// one expectation.
type Case struct {
	// Name is the human-readable case title.
	Name string

	// Wasm is the guest binary path, relative to the suite base directory.
	Wasm string

	// Args are the guest program's own arguments (possibly empty).
	Args []string

	// Stdin is an optional file whose raw bytes become the guest's stdin.
	// Empty means no stdin is supplied.
	Stdin string

	// Skip excludes the case from the run. SkipReason documents why.
	Skip       bool
	SkipReason string

	// Requires lists files that must exist for the case to run.
	// A missing file skips the case instead of failing it.
	Requires []string

	// Expect is either a match.Pattern or a match.Digest, never both.
	Expect match.Expectation
}

// MissingRequirements returns the entries of Requires that do not exist
// under baseDir.
func (c Case) MissingRequirements(baseDir string) []string {
	var missing []string
	for _, req := range c.Requires {
		path := req
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, req)
		}
	}
	return missing
}

// Suite is an ordered list of cases sharing a working directory.
type Suite struct {
	Name string

	// BaseDir is where guest, stdin and required paths are resolved and
	// where the runtime is started.
	BaseDir string

	Cases []Case

	// Hash fingerprints the case list (see Fingerprint).
	Hash string
}

// Filter returns a copy of s holding only the cases whose names match the
// wildcard pattern. An empty pattern keeps every case. The copy's Hash
// fingerprints the cases it kept.
func (s *Suite) Filter(pattern string) *Suite {
	if pattern == "" {
		return s
	}
	out := *s
	out.Cases = nil
	for _, c := range s.Cases {
		if match.Wildcard(pattern, c.Name) {
			out.Cases = append(out.Cases, c)
		}
	}
	if hash, err := Fingerprint(out.Name, out.Cases); err == nil {
		out.Hash = hash
	}
	return &out
}

// Fingerprint computes the content hash of the suite's case list.
// Order matters: the same cases in a different order hash differently.
func Fingerprint(name string, cases []Case) (string, error) {
	list := make([]any, len(cases))
	for i, c := range cases {
		entry := map[string]any{
			"name":   c.Name,
			"wasm":   c.Wasm,
			"args":   append([]string{}, c.Args...),
			"skip":   c.Skip,
			"expect": map[string]any{c.Expect.Kind(): c.Expect.String()},
		}
		if c.Stdin != "" {
			entry["stdin"] = c.Stdin
		}
		if len(c.Requires) > 0 {
			entry["requires"] = append([]string{}, c.Requires...)
		}
		list[i] = entry
	}
	return canon.Fingerprint(canon.DomainSuite, map[string]any{
		"name":  name,
		"cases": list,
	})
}
