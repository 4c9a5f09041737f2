package suite

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wasitest/internal/match"
)

//go:embed default.yaml
var defaultSuiteYAML []byte

// LoadError reports a suite that cannot be loaded or fails validation.
type LoadError struct {
	Path string // suite file, "<embedded>" for the default suite
	Case int    // index of the offending case, -1 for suite-level errors
	Err  error
}

func (e *LoadError) Error() string {
	if e.Case >= 0 {
		return fmt.Sprintf("%s: cases[%d]: %v", e.Path, e.Case, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// rawSuite is the on-disk shape shared by the YAML and CUE formats.
type rawSuite struct {
	Name  string    `yaml:"name" json:"name"`
	Cases []rawCase `yaml:"cases" json:"cases"`
}

type rawCase struct {
	Name          string   `yaml:"name" json:"name"`
	Wasm          string   `yaml:"wasm" json:"wasm"`
	Args          argList  `yaml:"args,omitempty" json:"args,omitempty"`
	Stdin         string   `yaml:"stdin,omitempty" json:"stdin,omitempty"`
	Skip          bool     `yaml:"skip,omitempty" json:"skip,omitempty"`
	SkipReason    string   `yaml:"skip_reason,omitempty" json:"skip_reason,omitempty"`
	Requires      []string `yaml:"requires,omitempty" json:"requires,omitempty"`
	ExpectPattern *string  `yaml:"expect_pattern,omitempty" json:"expect_pattern,omitempty"`
	ExpectSHA1    *string  `yaml:"expect_sha1,omitempty" json:"expect_sha1,omitempty"`
}

// argList accepts any YAML scalar as an argument and keeps its literal
// text, so `args: [128, 4e5]` yields "128" and "4e5" rather than numbers.
type argList []string

func (a *argList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: args must be a list", value.Line)
	}
	out := make(argList, 0, len(value.Content))
	for _, item := range value.Content {
		if item.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: args entries must be scalars", item.Line)
		}
		out = append(out, item.Value)
	}
	*a = out
	return nil
}

// Load reads a suite file, picking the format from its extension
// (.yaml/.yml or .cue). Relative paths in the suite resolve against
// baseDir, or against the file's directory when baseDir is empty.
func Load(path, baseDir string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Case: -1, Err: fmt.Errorf("failed to read suite file: %w", err)}
	}

	if baseDir == "" {
		baseDir = filepath.Dir(path)
	}
	defaultName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var raw *rawSuite
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		raw, err = decodeYAML(data)
	case ".cue":
		raw, err = decodeCUE(data, path)
	default:
		err = fmt.Errorf("unsupported suite format %q (want .yaml, .yml or .cue)", ext)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Case: -1, Err: err}
	}

	return build(path, raw, defaultName, baseDir)
}

// LoadDefault returns the built-in WASI suite, resolved against baseDir.
func LoadDefault(baseDir string) (*Suite, error) {
	raw, err := decodeYAML(defaultSuiteYAML)
	if err != nil {
		return nil, &LoadError{Path: "<embedded>", Case: -1, Err: err}
	}
	return build("<embedded>", raw, "wasi", baseDir)
}

// decodeYAML parses with strict field checking so that typos such as
// "expect_sha" are rejected instead of silently dropped.
func decodeYAML(data []byte) (*rawSuite, error) {
	var raw rawSuite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &raw, nil
}

// build validates raw and converts it into a Suite.
func build(path string, raw *rawSuite, defaultName, baseDir string) (*Suite, error) {
	if len(raw.Cases) == 0 {
		return nil, &LoadError{Path: path, Case: -1, Err: errors.New("cases list is required and must be non-empty")}
	}

	name := raw.Name
	if name == "" {
		name = defaultName
	}

	seen := make(map[string]int, len(raw.Cases))
	cases := make([]Case, 0, len(raw.Cases))
	for i, rc := range raw.Cases {
		c, err := convertCase(rc)
		if err != nil {
			return nil, &LoadError{Path: path, Case: i, Err: err}
		}
		if prev, dup := seen[c.Name]; dup {
			return nil, &LoadError{Path: path, Case: i, Err: fmt.Errorf("duplicate case name %q (first at cases[%d])", c.Name, prev)}
		}
		seen[c.Name] = i
		cases = append(cases, c)
	}

	hash, err := Fingerprint(name, cases)
	if err != nil {
		return nil, &LoadError{Path: path, Case: -1, Err: err}
	}

	return &Suite{
		Name:    name,
		BaseDir: baseDir,
		Cases:   cases,
		Hash:    hash,
	}, nil
}

// convertCase checks one case and resolves its expectation.
// Exactly one of expect_pattern and expect_sha1 must be present.
func convertCase(rc rawCase) (Case, error) {
	if rc.Name == "" {
		return Case{}, errors.New("name is required")
	}
	if rc.Wasm == "" {
		return Case{}, fmt.Errorf("case %q: wasm is required", rc.Name)
	}

	var exp match.Expectation
	switch {
	case rc.ExpectPattern != nil && rc.ExpectSHA1 != nil:
		return Case{}, fmt.Errorf("case %q: expect_pattern and expect_sha1 are mutually exclusive", rc.Name)
	case rc.ExpectPattern != nil:
		exp = match.Pattern{Text: *rc.ExpectPattern}
	case rc.ExpectSHA1 != nil:
		d, err := match.NewSHA1Digest(*rc.ExpectSHA1)
		if err != nil {
			return Case{}, fmt.Errorf("case %q: %w", rc.Name, err)
		}
		exp = d
	default:
		return Case{}, fmt.Errorf("case %q: one of expect_pattern or expect_sha1 is required", rc.Name)
	}

	for i, req := range rc.Requires {
		if req == "" {
			return Case{}, fmt.Errorf("case %q: requires[%d] is empty", rc.Name, i)
		}
	}

	return Case{
		Name:       rc.Name,
		Wasm:       rc.Wasm,
		Args:       []string(rc.Args),
		Stdin:      rc.Stdin,
		Skip:       rc.Skip,
		SkipReason: rc.SkipReason,
		Requires:   rc.Requires,
		Expect:     exp,
	}, nil
}
