package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"b": 1, "a": "x", "c": true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":true}`, string(data))
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as the surrogate pair D83D DE00, which sorts before
	// U+E000 in UTF-16 even though UTF-8 byte order says the opposite.
	data, err := Marshal(map[string]any{"\uE000": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uE000\":1}", string(data))
}

func TestMarshal_NoHTMLEscape(t *testing.T) {
	data, err := Marshal("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(data))
}

func TestMarshal_NFC(t *testing.T) {
	data, err := Marshal("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(data))
}

func TestMarshal_LineSeparators(t *testing.T) {
	data, err := Marshal("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(data))

	// A literal backslash followed by "u2028" stays escaped.
	data, err = Marshal(`\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(data))
}

func TestMarshal_Arrays(t *testing.T) {
	data, err := Marshal(map[string]any{
		"args": []string{"-s", "128x128"},
		"mix":  []any{int64(1), "two", false},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"args":["-s","128x128"],"mix":[1,"two",false]}`, string(data))
}

func TestMarshal_Rejects(t *testing.T) {
	_, err := Marshal(nil)
	assert.ErrorContains(t, err, "null")

	_, err = Marshal(map[string]any{"f": 1.5})
	assert.ErrorContains(t, err, "floats")

	_, err = Marshal(struct{}{})
	assert.ErrorContains(t, err, "unsupported type")
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(DomainSuite, map[string]any{"x": 1, "y": 2})
	require.NoError(t, err)
	b, err := Fingerprint(DomainSuite, map[string]any{"y": 2, "x": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b, "key order must not affect the fingerprint")
	assert.Len(t, a, 64)

	c, err := Fingerprint("other/domain/v1", map[string]any{"x": 1, "y": 2})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
