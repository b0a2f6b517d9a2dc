package modules

import (
	"encoding/json"
	"fmt"
)

// Schema backs the `schema` module with a minimal JSON-Schema-lite validator
// covering type/required/enum — the subset the pack's examples actually
// exercise. No example repo imports a full JSON Schema validator for
// runtime (non-OpenAPI) use, so this stays stdlib `encoding/json`-based
// rather than adding a dependency with no grounding (see DESIGN.md; contrast
// with SpecGenerator's go-openapi/validate, which validates OpenAPI
// documents themselves, a different job).
type Schema struct{}

func (Schema) Validate(schemaJSON, dataJSON string) (map[string]any, error) {
	var sch map[string]any
	if err := json.Unmarshal([]byte(schemaJSON), &sch); err != nil {
		return nil, fmt.Errorf("schema: invalid schema json: %w", err)
	}
	var data any
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return nil, fmt.Errorf("schema: invalid data json: %w", err)
	}

	var errs []string
	validateValue("$", sch, data, &errs)

	return map[string]any{
		"valid":  len(errs) == 0,
		"errors": errs,
	}, nil
}

func (s Schema) IsValid(schemaJSON, dataJSON string) (bool, error) {
	r, err := s.Validate(schemaJSON, dataJSON)
	if err != nil {
		return false, err
	}
	return r["valid"].(bool), nil
}

func (s Schema) Errors(schemaJSON, dataJSON string) ([]string, error) {
	r, err := s.Validate(schemaJSON, dataJSON)
	if err != nil {
		return nil, err
	}
	return r["errors"].([]string), nil
}

func validateValue(path string, sch map[string]any, data any, errs *[]string) {
	if t, ok := sch["type"].(string); ok {
		if !matchesType(t, data) {
			*errs = append(*errs, fmt.Sprintf("%s: expected type %s", path, t))
			return
		}
	}

	if enum, ok := sch["enum"].([]any); ok {
		found := false
		for _, v := range enum {
			if equalValues(v, data) {
				found = true
				break
			}
		}
		if !found {
			*errs = append(*errs, fmt.Sprintf("%s: value not in enum", path))
		}
	}

	obj, isObj := data.(map[string]any)
	if !isObj {
		return
	}

	if required, ok := sch["required"].([]any); ok {
		for _, r := range required {
			key, _ := r.(string)
			if _, present := obj[key]; !present {
				*errs = append(*errs, fmt.Sprintf("%s: missing required field %q", path, key))
			}
		}
	}

	if props, ok := sch["properties"].(map[string]any); ok {
		for key, propSchemaAny := range props {
			propSchema, ok := propSchemaAny.(map[string]any)
			if !ok {
				continue
			}
			if v, present := obj[key]; present {
				validateValue(path+"."+key, propSchema, v, errs)
			}
		}
	}
}

func matchesType(t string, v any) bool {
	switch t {
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		_, ok := v.(float64)
		return ok
	case "integer":
		f, ok := v.(float64)
		return ok && f == float64(int64(f))
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "null":
		return v == nil
	default:
		return true
	}
}

func (s Schema) Object() map[string]any {
	return map[string]any{
		"validate": s.Validate,
		"is_valid": s.IsValid,
		"errors":   s.Errors,
	}
}
