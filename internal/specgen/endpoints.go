package specgen

import (
	"sort"
	"strings"
)

// crudOrder implements spec §4.7 step 3's "POST < GET < PUT < PATCH < DELETE"
// within-path ordering.
var crudOrder = map[string]int{
	"POST":   0,
	"GET":    1,
	"PUT":    2,
	"PATCH":  3,
	"DELETE": 4,
}

// Options selects and shapes the generated workflow (spec §4.7 steps 1-3).
type Options struct {
	Tags           []string
	Methods        []string
	IncludeDeprecated bool
	BaseURL        string
}

func (o Options) tagSet() map[string]bool {
	if len(o.Tags) == 0 {
		return nil
	}
	set := make(map[string]bool, len(o.Tags))
	for _, t := range o.Tags {
		set[strings.ToLower(t)] = true
	}
	return set
}

func (o Options) methodSet() map[string]bool {
	if len(o.Methods) == 0 {
		return nil
	}
	set := make(map[string]bool, len(o.Methods))
	for _, m := range o.Methods {
		set[strings.ToUpper(m)] = true
	}
	return set
}

// selectEndpoints filters endpoints by tag/method/deprecated per Options,
// then sorts by path and CRUD-order within a path so a generated workflow
// creates a resource before it reads, updates, or deletes it.
func selectEndpoints(endpoints []Endpoint, opts Options) []Endpoint {
	tags := opts.tagSet()
	methods := opts.methodSet()

	var out []Endpoint
	for _, ep := range endpoints {
		if ep.Deprecated && !opts.IncludeDeprecated {
			continue
		}
		if tags != nil && !hasAnyTag(ep.Tags, tags) {
			continue
		}
		if methods != nil && !methods[ep.Method] {
			continue
		}
		out = append(out, ep)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return crudOrder[out[i].Method] < crudOrder[out[j].Method]
	})
	return out
}

func hasAnyTag(epTags []string, want map[string]bool) bool {
	for _, t := range epTags {
		if want[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

// resourceName derives the "<resourceName>_id" step-output variable naming
// convention (spec §4.7 step 6) from the last non-parameter path segment,
// singularized by singularize: "-ies" becomes "-y", "-ses" drops its "es",
// otherwise one trailing "s" is dropped unless the word ends in "ss" (good
// enough for the typical "/users", "/orders/{id}/items" REST-resource-
// collection shape).
func resourceName(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" || isPathParam(seg) {
			continue
		}
		return singularize(seg)
	}
	return "resource"
}

func isPathParam(segment string) bool {
	return strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
}

func singularize(word string) string {
	if strings.HasSuffix(word, "ies") && len(word) > 3 {
		return word[:len(word)-3] + "y"
	}
	if strings.HasSuffix(word, "ses") && len(word) > 3 {
		return word[:len(word)-2]
	}
	if strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		return word[:len(word)-1]
	}
	return word
}

// pathParams returns the {param} segment names appearing in path, in
// left-to-right order.
func pathParams(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if isPathParam(seg) {
			out = append(out, strings.Trim(seg, "{}"))
		}
	}
	return out
}
