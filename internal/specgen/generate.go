package specgen

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quicpulse/quicpulse/internal/model"
	"github.com/quicpulse/quicpulse/internal/workflow"
)

// requiredLatencyBound is spec §4.7 step 5's generated "under 500ms" assert.
const requiredLatencyBound = 500 * time.Millisecond

// Generate turns a parsed OpenAPI document's byte form into a runnable
// workflow.Workflow (spec §4.7): select endpoints, order them so a resource
// is created before it's read/updated/deleted, generate request bodies and
// path parameters from the schema via magicGen, and chain id extraction
// from a POST/PUT response into the URL of the endpoints that depend on it.
func Generate(data []byte, opts Options) (*workflow.Workflow, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}

	endpoints := selectEndpoints(doc.Endpoints, opts)
	gen := newMagicGen(doc.root)

	wf := &workflow.Workflow{
		Name:    "generated",
		BaseURL: firstNonEmpty(opts.BaseURL, doc.BasePath),
	}
	if headers := globalHeaders(doc.SecuritySchemes); len(headers) > 0 {
		wf.GlobalHeaders = headers
	}

	extracted := map[string]bool{} // resourceName -> an earlier step already extracted <resourceName>_id
	baked := map[string]string{}   // resourceName -> a magic value baked into the URL when nothing extracted it yet

	for _, ep := range endpoints {
		step, err := buildStep(gen, ep, extracted, baked)
		if err != nil {
			return nil, model.Errorf(model.KindParse, err, "generate step for %s %s", ep.Method, ep.Path)
		}
		wf.Steps = append(wf.Steps, *step)
	}

	return wf, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func buildStep(gen *magicGen, ep Endpoint, extracted map[string]bool, baked map[string]string) (*workflow.Step, error) {
	name := ep.OperationID
	if name == "" {
		name = strings.ToLower(ep.Method) + "_" + sanitizeName(ep.Path)
	}

	step := &workflow.Step{
		Name:   name,
		Tags:   ep.Tags,
		Method: ep.Method,
	}

	url, err := resolveURL(gen, ep.Path, extracted, baked)
	if err != nil {
		return nil, err
	}
	step.URL = url

	if ep.RequestSchema != nil && (ep.Method == "POST" || ep.Method == "PUT" || ep.Method == "PATCH") {
		body, err := gen.value(ep.RequestSchema)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(body)
		if err != nil {
			return nil, model.Errorf(model.KindParse, err, "marshal generated request body")
		}
		step.Body = string(b)
		step.Headers = map[string]string{"Content-Type": "application/json"}
	}

	step.Assert = workflow.Assertion{
		Status:     statusClassOrExact(ep.SuccessStatus),
		MaxLatency: requiredLatencyBound,
		Required:   requiredFieldPaths(ep.ResponseSchema),
	}

	if field := idField(ep.ResponseSchema, ep.Path); field != "" && (ep.Method == "POST" || ep.Method == "PUT") {
		rn := resourceName(ep.Path)
		step.Extract = workflow.Extract{rn + "_id": "body." + field}
		extracted[rn] = true
	}

	return step, nil
}

// resolveURL substitutes each {param} segment: with the variable a prior
// step's extraction bound, if the path's resource has already had one
// extracted, or else with a freshly generated magic value baked directly
// into the URL (and remembered so every endpoint under the same resource
// addresses the same instance).
func resolveURL(gen *magicGen, path string, extracted map[string]bool, baked map[string]string) (string, error) {
	rn := resourceName(path)
	url := path
	for _, param := range pathParams(path) {
		placeholder := "{" + param + "}"
		if extracted[rn] {
			url = strings.Replace(url, placeholder, "{{"+rn+"_id}}", 1)
			continue
		}
		value, ok := baked[rn]
		if !ok {
			v, err := gen.value(map[string]any{"type": "string", "format": "uuid"})
			if err != nil {
				return "", err
			}
			value = fmt.Sprint(v)
			baked[rn] = value
		}
		url = strings.Replace(url, placeholder, value, 1)
	}
	return url, nil
}

func statusClassOrExact(status int) string {
	if status == 0 {
		return "2xx"
	}
	return fmt.Sprint(status)
}

// requiredFieldPaths turns a response schema's top-level "required" array
// (falling back to every declared property when the schema has none) into
// the presence-only assertions SpecGenerator needs (spec §4.7 step 5).
func requiredFieldPaths(schema map[string]any) []string {
	if schema == nil {
		return nil
	}
	if req, ok := schema["required"].([]any); ok && len(req) > 0 {
		out := make([]string, 0, len(req))
		for _, r := range req {
			out = append(out, fmt.Sprint(r))
		}
		return out
	}
	props, _ := schema["properties"].(map[string]any)
	out := make([]string, 0, len(props))
	for name := range props {
		out = append(out, name)
	}
	return out
}

// idField finds the response schema property that a step's Extract should
// capture as the resource's id: an exact "id", or the <resourceName>_id /
// <resourceName>Id convention.
func idField(schema map[string]any, path string) string {
	if schema == nil {
		return ""
	}
	props, _ := schema["properties"].(map[string]any)
	if props == nil {
		return ""
	}
	if _, ok := props["id"]; ok {
		return "id"
	}
	rn := resourceName(path)
	for _, candidate := range []string{rn + "_id", rn + "Id"} {
		if _, ok := props[candidate]; ok {
			return candidate
		}
	}
	return ""
}

func globalHeaders(schemes map[string]SecurityRequirement) map[string]string {
	headers := map[string]string{}
	for _, s := range schemes {
		switch s.Type {
		case "bearer":
			headers["Authorization"] = "Bearer ${API_TOKEN}"
		case "basic":
			headers["Authorization"] = "Basic ${API_TOKEN}"
		case "apiKey":
			if s.In == "header" && s.Name != "" {
				headers[s.Name] = "${API_TOKEN}"
			}
		}
	}
	return headers
}

func sanitizeName(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
