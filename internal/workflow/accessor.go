package workflow

import (
	"strconv"
	"strings"
)

// accessPath evaluates a simple dotted/JSONPath-ish accessor (spec §4.6
// step 7: "simple dotted/JSONPath-ish accessors against response body and
// headers") against an already-decoded JSON-like value (map[string]any,
// []any, or scalar). Segments are split on '.'; a segment of the form
// "name[N]" indexes into a slice.
func accessPath(root any, path string) (any, bool) {
	if path == "" {
		return root, true
	}
	cur := root
	for _, seg := range strings.Split(path, ".") {
		name, idx, hasIdx := splitIndex(seg)
		if name != "" {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			v, ok := m[name]
			if !ok {
				return nil, false
			}
			cur = v
		}
		if hasIdx {
			arr, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		}
	}
	return cur, true
}

// splitIndex parses "items[2]" into ("items", 2, true); a plain "items"
// returns ("items", 0, false).
func splitIndex(seg string) (name string, idx int, hasIdx bool) {
	open := strings.IndexByte(seg, '[')
	if open < 0 || !strings.HasSuffix(seg, "]") {
		return seg, 0, false
	}
	name = seg[:open]
	n, err := strconv.Atoi(seg[open+1 : len(seg)-1])
	if err != nil {
		return seg, 0, false
	}
	return name, n, true
}

// matchStatus implements spec §4.6's status matcher: exact ("200") or
// class ("2xx", "4xx"...).
func matchStatus(spec string, code int) bool {
	if spec == "" {
		return true
	}
	if strings.HasSuffix(spec, "xx") && len(spec) == 3 {
		class := spec[0]
		return strconv.Itoa(code)[0] == class
	}
	n, err := strconv.Atoi(spec)
	if err != nil {
		return false
	}
	return n == code
}
