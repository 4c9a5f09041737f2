package suite

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wasitest/internal/match"
)

func writeSuite(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeSuite(t, "smoke.yaml", `
name: smoke
cases:
  - name: hello
    wasm: ./hello.wasm
    args: [128, 4e5, -c]
    expect_pattern: "Hello*"
  - name: digest
    wasm: ./digest.wasm
    stdin: ./input.txt
    expect_sha1: AAF4C61DDCC5E8A2DABEDE0F3B482CD9AEA9434D
`)

	s, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "smoke", s.Name)
	assert.Equal(t, filepath.Dir(path), s.BaseDir)
	require.Len(t, s.Cases, 2)

	hello := s.Cases[0]
	assert.Equal(t, "hello", hello.Name)
	assert.Equal(t, []string{"128", "4e5", "-c"}, hello.Args)
	assert.Equal(t, match.Pattern{Text: "Hello*"}, hello.Expect)

	digest := s.Cases[1]
	assert.Equal(t, "./input.txt", digest.Stdin)
	assert.Empty(t, digest.Args)
	assert.Equal(t, match.Digest{Algorithm: match.SHA1, Hex: "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"}, digest.Expect)

	assert.Len(t, s.Hash, 64)
}

func TestLoad_ExplicitBaseDir(t *testing.T) {
	path := writeSuite(t, "s.yml", `
cases:
  - name: a
    wasm: a.wasm
    expect_pattern: "*"
`)
	s, err := Load(path, "/srv/tests")
	require.NoError(t, err)
	assert.Equal(t, "/srv/tests", s.BaseDir)
	assert.Equal(t, "s", s.Name, "name defaults to the file stem")
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
		wantIdx int
	}{
		{
			name:    "unknown field",
			content: "cases:\n  - name: a\n    wasm: a.wasm\n    expect_sha: abc\n",
			wantErr: "field expect_sha not found",
			wantIdx: -1,
		},
		{
			name:    "no cases",
			content: "name: empty\ncases: []\n",
			wantErr: "cases list is required",
			wantIdx: -1,
		},
		{
			name:    "missing expectation",
			content: "cases:\n  - name: a\n    wasm: a.wasm\n",
			wantErr: "one of expect_pattern or expect_sha1 is required",
			wantIdx: 0,
		},
		{
			name: "both expectations",
			content: "cases:\n  - name: a\n    wasm: a.wasm\n    expect_pattern: x\n" +
				"    expect_sha1: aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d\n",
			wantErr: "mutually exclusive",
			wantIdx: 0,
		},
		{
			name:    "bad digest",
			content: "cases:\n  - name: a\n    wasm: a.wasm\n    expect_sha1: deadbeef\n",
			wantErr: "40 hex characters",
			wantIdx: 0,
		},
		{
			name:    "missing name",
			content: "cases:\n  - wasm: a.wasm\n    expect_pattern: x\n",
			wantErr: "name is required",
			wantIdx: 0,
		},
		{
			name:    "missing wasm",
			content: "cases:\n  - name: ok\n    expect_pattern: x\n  - name: a\n    expect_pattern: x\n",
			wantErr: "wasm is required",
			wantIdx: 0,
		},
		{
			name: "duplicate names",
			content: "cases:\n  - name: a\n    wasm: a.wasm\n    expect_pattern: x\n" +
				"  - name: a\n    wasm: b.wasm\n    expect_pattern: y\n",
			wantErr: "duplicate case name",
			wantIdx: 1,
		},
		{
			name:    "args not a list",
			content: "cases:\n  - name: a\n    wasm: a.wasm\n    args: oops\n    expect_pattern: x\n",
			wantErr: "args must be a list",
			wantIdx: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSuite(t, "bad.yaml", tt.content)
			_, err := Load(path, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, path, loadErr.Path)
			assert.Equal(t, tt.wantIdx, loadErr.Case)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read suite file")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeSuite(t, "suite.toml", "x = 1")
	_, err := Load(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported suite format")
}

func TestLoad_CUE(t *testing.T) {
	path := writeSuite(t, "suite.cue", `
name: "cue-suite"
cases: [
	{
		name: "mandelbrot"
		wasm: "./mandel.wasm"
		args: ["128", "4e5"]
		expect_sha1: "37091e7ce96adeea88f079ad95d239a651308a56"
	},
	{
		name: "stream"
		wasm: "./stream.wasm"
		skip: true
		skip_reason: "slow"
		expect_pattern: "----*"
	},
]
`)

	s, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "cue-suite", s.Name)
	require.Len(t, s.Cases, 2)
	assert.Equal(t, []string{"128", "4e5"}, s.Cases[0].Args)
	assert.Equal(t, "sha1", s.Cases[0].Expect.Kind())
	assert.True(t, s.Cases[1].Skip)
	assert.Equal(t, "slow", s.Cases[1].SkipReason)
	assert.Equal(t, match.Pattern{Text: "----*"}, s.Cases[1].Expect)
}

func TestLoad_CUERejectsUnknownField(t *testing.T) {
	path := writeSuite(t, "suite.cue", `
cases: [{
	name: "a"
	wasm: "a.wasm"
	expect_pattern: "*"
	timeout: 5
}]
`)
	_, err := Load(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestLoad_CUERejectsMalformedDigest(t *testing.T) {
	path := writeSuite(t, "suite.cue", `
cases: [{
	name: "a"
	wasm: "a.wasm"
	expect_sha1: "xyz"
}]
`)
	_, err := Load(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating CUE")
}

func TestLoadDefault(t *testing.T) {
	s, err := LoadDefault("/tmp/wasm3/test")
	require.NoError(t, err)

	assert.Equal(t, "wasi", s.Name)
	assert.Equal(t, "/tmp/wasm3/test", s.BaseDir)
	require.Len(t, s.Cases, 11)

	byName := make(map[string]Case, len(s.Cases))
	for _, c := range s.Cases {
		byName[c.Name] = c
	}

	raw := byName["Raw/Native funcs benchmark"]
	assert.True(t, raw.Skip)
	assert.NotEmpty(t, raw.SkipReason)

	cray := byName["C-Ray"]
	assert.Equal(t, "./benchmark/c-ray/scene", cray.Stdin)
	assert.Equal(t, []string{"-s", "128x128"}, cray.Args)
	assert.Equal(t, "90f86845ae227466a06ea8db06e753af4838f2fa", cray.Expect.String())

	mandel := byName["mandelbrot"]
	assert.Equal(t, []string{"128", "4e5"}, mandel.Args)

	brotli := byName["Brotli"]
	assert.Equal(t, []string{"-9", "-c"}, brotli.Args)

	selfHost := byName["Self-hosting"]
	assert.Equal(t, []string{"./self-hosting/wasm3-fib.wasm"}, selfHost.Requires)

	for _, c := range s.Cases {
		assert.NotNil(t, c.Expect, "case %q must carry an expectation", c.Name)
	}
}

func TestLoadDefault_StableHash(t *testing.T) {
	a, err := LoadDefault("/a")
	require.NoError(t, err)
	b, err := LoadDefault("/b")
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash, "base dir must not affect the fingerprint")
}

func TestFilter(t *testing.T) {
	s, err := LoadDefault(".")
	require.NoError(t, err)

	t.Run("empty pattern keeps everything", func(t *testing.T) {
		assert.Same(t, s, s.Filter(""))
	})

	t.Run("wildcard selects by name", func(t *testing.T) {
		got := s.Filter("C*")
		names := make([]string, 0, len(got.Cases))
		for _, c := range got.Cases {
			names = append(names, c.Name)
		}
		assert.Equal(t, []string{"C-Ray", "CoreMark"}, names)
		assert.Len(t, s.Cases, 11, "the receiver must not change")
		assert.NotEqual(t, s.Hash, got.Hash)
	})

	t.Run("no match", func(t *testing.T) {
		got := s.Filter("nothing-like-this")
		assert.Empty(t, got.Cases)
		assert.Equal(t, s.Name, got.Name)
		assert.Equal(t, s.BaseDir, got.BaseDir)
	})
}

func TestFingerprint(t *testing.T) {
	a := Case{Name: "a", Wasm: "a.wasm", Expect: match.Pattern{Text: "*"}}
	b := Case{Name: "b", Wasm: "b.wasm", Args: []string{"1"}, Expect: match.Pattern{Text: "?"}}

	ab, err := Fingerprint("s", []Case{a, b})
	require.NoError(t, err)
	again, err := Fingerprint("s", []Case{a, b})
	require.NoError(t, err)
	ba, err := Fingerprint("s", []Case{b, a})
	require.NoError(t, err)
	renamed, err := Fingerprint("t", []Case{a, b})
	require.NoError(t, err)

	assert.Equal(t, ab, again)
	assert.NotEqual(t, ab, ba, "order is part of the fingerprint")
	assert.NotEqual(t, ab, renamed)
	assert.Len(t, ab, 64)
}

func TestMissingRequirements(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "present.wasm"), nil, 0644))
	abs := filepath.Join(dir, "present.wasm")

	c := Case{Requires: []string{"present.wasm", "absent.wasm", abs, "/no/such/file"}}
	assert.Equal(t, []string{"absent.wasm", "/no/such/file"}, c.MissingRequirements(dir))
	assert.Empty(t, Case{}.MissingRequirements(dir))
}
