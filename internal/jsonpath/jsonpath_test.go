package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractByPath(t *testing.T) {
	root := map[string]interface{}{
		"type":  "transcript.text.delta",
		"delta": "hel",
		"n":     float64(3),
		"ratio": 0.5,
		"final": true,
		"error": map[string]interface{}{"message": "boom"},
		"results": []interface{}{
			map[string]interface{}{
				"alternatives": []interface{}{
					map[string]interface{}{"transcript": "ok"},
				},
			},
		},
	}

	cases := map[string]struct {
		path string
		want string
		ok   bool
	}{
		"top level":      {"delta", "hel", true},
		"nested":         {"error.message", "boom", true},
		"indexes":        {"results[0].alternatives[0].transcript", "ok", true},
		"integer":        {"n", "3", true},
		"float":          {"ratio", "0.5", true},
		"bool":           {"final", "true", true},
		"object":         {"error", "", false},
		"out of range":   {"results[9].alternatives[0].transcript", "", false},
		"missing":        {"text", "", false},
		"index on map":   {"error[0]", "", false},
		"bad index":      {"results[x]", "", false},
		"unclosed index": {"results[0", "", false},
		"empty path":     {"", "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := ExtractByPath(root, tc.path)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLookupFirstNonEmpty(t *testing.T) {
	body := []byte(`{"error":{"message":"Incorrect API key provided","code":""},"detail":"fallback"}`)
	require.Equal(t, "Incorrect API key provided", Lookup(body, "error.message", "detail"))
	require.Equal(t, "fallback", Lookup(body, "error.code", "detail"))
	require.Equal(t, "", Lookup(body, "nothing"))
	require.Equal(t, "", Lookup([]byte("<html>bad gateway</html>"), "error.message"))
}

func TestParseSegment(t *testing.T) {
	key, idxs, err := parseSegment("foo[0][1]")
	require.NoError(t, err)
	require.Equal(t, "foo", key)
	require.Equal(t, []int{0, 1}, idxs)

	key, idxs, err = parseSegment("[2]")
	require.NoError(t, err)
	require.Empty(t, key)
	require.Equal(t, []int{2}, idxs)

	_, _, err = parseSegment("foo[]")
	require.Error(t, err)
}
