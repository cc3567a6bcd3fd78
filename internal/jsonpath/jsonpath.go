// Package jsonpath reads scalar values out of decoded JSON with paths such
// as "error.message" or "results[0].alternatives[0].transcript".
package jsonpath

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Lookup decodes body and returns the value at the first path that resolves
// to a non-empty scalar. Undecodable bodies yield "".
func Lookup(body []byte, paths ...string) string {
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return ""
	}
	for _, p := range paths {
		if v, ok := ExtractByPath(root, p); ok && v != "" {
			return v
		}
	}
	return ""
}

// ExtractByPath returns the scalar at a dot-separated path. Objects, arrays
// and null are not scalars.
func ExtractByPath(root interface{}, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	cur := root
	for _, part := range strings.Split(path, ".") {
		key, idxs, err := parseSegment(part)
		if err != nil {
			return "", false
		}
		if key != "" {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return "", false
			}
			if cur, ok = m[key]; !ok {
				return "", false
			}
		}
		for _, idx := range idxs {
			arr, ok := cur.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return "", false
			}
			cur = arr[idx]
		}
	}
	return scalar(cur)
}

func scalar(v interface{}) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// parseSegment splits "foo[0][1]", "[0]" or "bar" into key and indexes.
func parseSegment(token string) (string, []int, error) {
	if token == "" {
		return "", nil, fmt.Errorf("empty token")
	}
	br := strings.Index(token, "[")
	if br == -1 {
		return token, nil, nil
	}
	key, rest := token[:br], token[br:]
	var idxs []int
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("invalid index syntax in %s", token)
		}
		closePos := strings.IndexByte(rest, ']')
		if closePos == -1 {
			return "", nil, fmt.Errorf("missing closing ] in %s", token)
		}
		n, err := strconv.Atoi(rest[1:closePos])
		if err != nil {
			return "", nil, fmt.Errorf("invalid index '%s' in %s", rest[1:closePos], token)
		}
		idxs = append(idxs, n)
		rest = rest[closePos+1:]
	}
	return key, idxs, nil
}
