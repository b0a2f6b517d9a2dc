// Package specgen implements SpecGenerator (spec §4.7): consumes a parsed
// OpenAPI 2.0/3.x document and emits a workflow.Workflow. The document walk
// reuses the shape of go-openapi/spec.Schema (already a teacher transitive
// dependency, promoted to direct here) for the request/response schema
// subtrees, while path/operation/security traversal stays on a generic
// map[string]any tree: go-openapi/spec's typed Swagger struct only covers
// 2.0, and spec.md requires both versions from one code path, so the
// generic tree is the common denominator both versions share.
package specgen

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quicpulse/quicpulse/internal/model"
)

// SecurityRequirement is the resolved shape of one security scheme,
// reduced to what a generated workflow step's headers need.
type SecurityRequirement struct {
	Type string // "basic" | "bearer" | "apiKey" | "oauth2"
	In   string // "header" | "query" (apiKey only)
	Name string // header/query parameter name
}

// Endpoint is one (path, method) operation extracted from the document.
type Endpoint struct {
	Path           string
	Method         string
	OperationID    string
	Tags           []string
	Deprecated     bool
	RequestSchema  map[string]any
	ResponseSchema map[string]any
	SuccessStatus  int
	Security       []SecurityRequirement
}

// Document is the parsed, version-normalized OpenAPI document.
type Document struct {
	BasePath        string
	IsV3            bool
	Endpoints       []Endpoint
	SecuritySchemes map[string]SecurityRequirement

	root map[string]any // retained for $ref resolution during schema walk
}

// ParseDocument accepts either a 2.0 ("swagger") or 3.x ("openapi")
// document, in JSON or YAML (yaml.v3 parses both).
func ParseDocument(data []byte) (*Document, error) {
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, model.Errorf(model.KindParse, err, "parse OpenAPI document")
	}

	isV3 := false
	if v, ok := generic["openapi"].(string); ok && strings.HasPrefix(v, "3.") {
		isV3 = true
	}

	if !isV3 {
		if err := validateSwagger2(generic); err != nil {
			return nil, err
		}
	}

	doc := &Document{
		SecuritySchemes: map[string]SecurityRequirement{},
		root:            generic,
		IsV3:            isV3,
	}
	if bp, ok := generic["basePath"].(string); ok {
		doc.BasePath = bp
	}

	for name, raw := range securitySchemeDefs(generic, isV3) {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		doc.SecuritySchemes[name] = parseSecurityScheme(m)
	}

	paths, _ := generic["paths"].(map[string]any)
	for path, rawItem := range paths {
		item, ok := rawItem.(map[string]any)
		if !ok {
			continue
		}
		for _, method := range []string{"get", "post", "put", "patch", "delete"} {
			rawOp, ok := item[method]
			if !ok {
				continue
			}
			opMap, ok := rawOp.(map[string]any)
			if !ok {
				continue
			}

			ep := Endpoint{Path: path, Method: strings.ToUpper(method)}
			if tags, ok := opMap["tags"].([]any); ok {
				for _, t := range tags {
					ep.Tags = append(ep.Tags, fmt.Sprint(t))
				}
			}
			if opID, ok := opMap["operationId"].(string); ok {
				ep.OperationID = opID
			}
			if dep, ok := opMap["deprecated"].(bool); ok {
				ep.Deprecated = dep
			}

			ep.SuccessStatus = extractSuccessStatus(opMap)
			ep.RequestSchema = extractRequestSchema(opMap, isV3)
			ep.ResponseSchema = extractResponseSchema(opMap, ep.SuccessStatus, isV3)
			ep.Security = resolveSecurity(opMap, doc.SecuritySchemes, generic)

			doc.Endpoints = append(doc.Endpoints, ep)
		}
	}

	return doc, nil
}

func securitySchemeDefs(generic map[string]any, isV3 bool) map[string]any {
	if isV3 {
		comps, _ := generic["components"].(map[string]any)
		defs, _ := comps["securitySchemes"].(map[string]any)
		return defs
	}
	defs, _ := generic["securityDefinitions"].(map[string]any)
	return defs
}

func parseSecurityScheme(m map[string]any) SecurityRequirement {
	typ, _ := m["type"].(string)
	switch typ {
	case "http":
		scheme, _ := m["scheme"].(string)
		return SecurityRequirement{Type: scheme, In: "header", Name: "Authorization"}
	case "basic":
		return SecurityRequirement{Type: "basic", In: "header", Name: "Authorization"}
	case "apiKey":
		in, _ := m["in"].(string)
		name, _ := m["name"].(string)
		return SecurityRequirement{Type: "apiKey", In: in, Name: name}
	case "oauth2":
		// Left as a placeholder per spec §4.7 step 7 ("leave OAuth flows as
		// placeholders") — no device/authcode flow is run during generation.
		return SecurityRequirement{Type: "oauth2"}
	default:
		return SecurityRequirement{Type: typ}
	}
}

func resolveSecurity(opMap map[string]any, schemes map[string]SecurityRequirement, generic map[string]any) []SecurityRequirement {
	raw, ok := opMap["security"].([]any)
	if !ok {
		raw, _ = generic["security"].([]any)
	}
	var out []SecurityRequirement
	for _, r := range raw {
		rm, ok := r.(map[string]any)
		if !ok {
			continue
		}
		for name := range rm {
			if s, ok := schemes[name]; ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func extractSuccessStatus(opMap map[string]any) int {
	responses, _ := opMap["responses"].(map[string]any)
	best := 0
	for k := range responses {
		code, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		if code >= 200 && code < 300 && (best == 0 || code < best) {
			best = code
		}
	}
	if best == 0 {
		return 200
	}
	return best
}

func extractRequestSchema(opMap map[string]any, isV3 bool) map[string]any {
	if isV3 {
		rb, _ := opMap["requestBody"].(map[string]any)
		content, _ := rb["content"].(map[string]any)
		appJSON, _ := content["application/json"].(map[string]any)
		schema, _ := appJSON["schema"].(map[string]any)
		return schema
	}
	params, _ := opMap["parameters"].([]any)
	for _, p := range params {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if in, _ := pm["in"].(string); in == "body" {
			schema, _ := pm["schema"].(map[string]any)
			return schema
		}
	}
	return nil
}

func extractResponseSchema(opMap map[string]any, successStatus int, isV3 bool) map[string]any {
	responses, _ := opMap["responses"].(map[string]any)
	if responses == nil {
		return nil
	}
	raw, ok := responses[strconv.Itoa(successStatus)]
	if !ok {
		raw, ok = responses["default"]
		if !ok {
			return nil
		}
	}
	respMap, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	if isV3 {
		content, _ := respMap["content"].(map[string]any)
		appJSON, _ := content["application/json"].(map[string]any)
		schema, _ := appJSON["schema"].(map[string]any)
		return schema
	}
	schema, _ := respMap["schema"].(map[string]any)
	return schema
}

// resolveRef resolves a local "#/a/b/c" JSON Reference against root.
func resolveRef(root map[string]any, ref string) (map[string]any, bool) {
	ref = strings.TrimPrefix(ref, "#/")
	var node any = root
	for _, part := range strings.Split(ref, "/") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	m, ok := node.(map[string]any)
	return m, ok
}
