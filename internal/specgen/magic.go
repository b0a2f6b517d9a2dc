package specgen

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/go-openapi/spec"
	"github.com/google/uuid"
	"github.com/jaswdr/faker"

	"github.com/quicpulse/quicpulse/internal/guard"
	"github.com/quicpulse/quicpulse/internal/model"
)

// maxSchemaDepth is spec §4.7 step 4's "10-level cap" on schema recursion,
// sharing internal/guard with the gRPC codec's depth guard (spec §9: "one
// mechanism, three call sites").
const maxSchemaDepth = 10

// magicGen implements the schema -> magic-value mapper (spec §4.7 step 4):
// formats get canonical generators, numbers get range-respecting random
// values, enums pick one literal, arrays wrap one generated item, objects
// recurse. Field typing (type/format/enum/minimum/maximum) is read through
// go-openapi/spec.Schema (re-marshaled per node from the generic document
// tree) rather than hand-rolled map assertions, since schema fields are
// exactly go-openapi/spec's job; $ref resolution and properties/items
// recursion stay on the raw map tree because go-openapi/spec has no typed
// model for 3.x documents and this walk must serve both versions.
type magicGen struct {
	root  map[string]any
	faker faker.Faker
}

func newMagicGen(root map[string]any) *magicGen {
	return &magicGen{root: root, faker: faker.New()}
}

func (g *magicGen) value(raw map[string]any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	return g.valueDepth(raw, guard.New(maxSchemaDepth))
}

func toSchema(raw map[string]any) (*spec.Schema, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, model.Errorf(model.KindParse, err, "marshal schema node")
	}
	var s spec.Schema
	if err := s.UnmarshalJSON(b); err != nil {
		return nil, model.Errorf(model.KindParse, err, "parse schema node")
	}
	return &s, nil
}

func (g *magicGen) valueDepth(raw map[string]any, d *guard.Depth) (any, error) {
	if err := d.Enter(); err != nil {
		return nil, model.Errorf(model.KindParse, err, "schema walk").WithHint("$ref cycle or nesting exceeds the 10-level cap")
	}
	defer d.Exit()

	if ref, ok := raw["$ref"].(string); ok {
		resolved, ok := resolveRef(g.root, ref)
		if !ok {
			return nil, model.Errorf(model.KindParse, nil, "unresolved $ref %q", ref)
		}
		return g.valueDepth(resolved, d)
	}

	schema, err := toSchema(raw)
	if err != nil {
		return nil, err
	}

	if len(schema.Enum) > 0 {
		return schema.Enum[rand.Intn(len(schema.Enum))], nil
	}

	typ := ""
	if len(schema.Type) > 0 {
		typ = schema.Type[0]
	}

	switch typ {
	case "object":
		return g.object(raw, d)
	case "array":
		return g.array(raw, d)
	case "string":
		return g.stringValue(schema.Format), nil
	case "integer":
		return g.intValue(schema), nil
	case "number":
		return g.numberValue(schema), nil
	case "boolean":
		return g.faker.Boolean().Bool(), nil
	default:
		if _, ok := raw["properties"]; ok {
			return g.object(raw, d)
		}
		return g.faker.Lorem().Word(), nil
	}
}

func (g *magicGen) object(raw map[string]any, d *guard.Depth) (any, error) {
	props, _ := raw["properties"].(map[string]any)
	out := make(map[string]any, len(props))
	for name, p := range props {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		v, err := g.valueDepth(pm, d)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func (g *magicGen) array(raw map[string]any, d *guard.Depth) (any, error) {
	items, _ := raw["items"].(map[string]any)
	if items == nil {
		return []any{}, nil
	}
	v, err := g.valueDepth(items, d)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

func (g *magicGen) stringValue(format string) string {
	switch format {
	case "uuid":
		return uuid.New().String()
	case "email":
		return g.faker.Internet().Email()
	case "date-time":
		return time.Now().UTC().Format(time.RFC3339)
	case "date":
		return time.Now().UTC().Format("2006-01-02")
	case "uri", "url":
		return "https://" + g.faker.Internet().Domain() + "/" + g.faker.Lorem().Word()
	case "ipv4":
		return g.faker.Internet().Ipv4()
	case "ipv6":
		return g.faker.Internet().Ipv6()
	case "password":
		return g.faker.Internet().Password()
	default:
		return g.faker.Lorem().Word()
	}
}

func (g *magicGen) intValue(schema *spec.Schema) int64 {
	min, max := int64(0), int64(1000)
	if schema.Minimum != nil {
		min = int64(*schema.Minimum)
	}
	if schema.Maximum != nil {
		max = int64(*schema.Maximum)
	}
	if max <= min {
		max = min + 1
	}
	return min + rand.Int63n(max-min)
}

func (g *magicGen) numberValue(schema *spec.Schema) float64 {
	min, max := 0.0, 1000.0
	if schema.Minimum != nil {
		min = *schema.Minimum
	}
	if schema.Maximum != nil {
		max = *schema.Maximum
	}
	if max <= min {
		max = min + 1
	}
	return min + rand.Float64()*(max-min)
}
