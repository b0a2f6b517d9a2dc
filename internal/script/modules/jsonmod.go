package modules

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Json backs the `json` module. `query` rides tidwall/gjson's dotted/
// JSONPath-ish `Get(json, path)` directly — exactly the accessor shape
// spec.md asks for. WorkflowEngine's `extract` step does not use gjson:
// internal/workflow/accessor.go implements the same idea by hand for
// Go-native map[string]any values rather than raw JSON text.
type Json struct{}

func (Json) Query(jsonText, path string) any {
	r := gjson.Get(jsonText, path)
	if !r.Exists() {
		return nil
	}
	return r.Value()
}

func (Json) IsValid(jsonText string) bool {
	return gjson.Valid(jsonText)
}

func (Json) Pretty(jsonText string) string {
	return string(pretty.Pretty([]byte(jsonText)))
}

func (Json) Compact(jsonText string) string {
	return string(pretty.Ugly([]byte(jsonText)))
}

func (Json) TypeOf(jsonText string) string {
	var v any
	if err := json.Unmarshal([]byte(jsonText), &v); err != nil {
		return "invalid"
	}
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

func (j Json) Object() map[string]any {
	return map[string]any{
		"query":    j.Query,
		"is_valid": j.IsValid,
		"pretty":   j.Pretty,
		"compact":  j.Compact,
		"type_of":  j.TypeOf,
	}
}
