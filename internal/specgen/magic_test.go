package specgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagicGen_ObjectAndFormats(t *testing.T) {
	gen := newMagicGen(nil)
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":    map[string]any{"type": "string", "format": "uuid"},
			"email": map[string]any{"type": "string", "format": "email"},
			"age":   map[string]any{"type": "integer", "minimum": 18.0, "maximum": 20.0},
			"role":  map[string]any{"type": "string", "enum": []any{"admin", "member"}},
		},
	}
	v, err := gen.value(schema)
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)

	id, ok := m["id"].(string)
	require.True(t, ok)
	assert.Len(t, strings.Split(id, "-"), 5)

	email, ok := m["email"].(string)
	require.True(t, ok)
	assert.Contains(t, email, "@")

	age, ok := m["age"].(int64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, age, int64(18))
	assert.LessOrEqual(t, age, int64(20))

	role, ok := m["role"].(string)
	require.True(t, ok)
	assert.Contains(t, []string{"admin", "member"}, role)
}

func TestMagicGen_ArrayWrapsOneGeneratedItem(t *testing.T) {
	gen := newMagicGen(nil)
	schema := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
	v, err := gen.value(schema)
	require.NoError(t, err)
	arr, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)
}

func TestMagicGen_ResolvesLocalRef(t *testing.T) {
	root := map[string]any{
		"definitions": map[string]any{
			"Pet": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
				},
			},
		},
	}
	gen := newMagicGen(root)
	v, err := gen.value(map[string]any{"$ref": "#/definitions/Pet"})
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, m, "name")
}

func TestMagicGen_UnresolvedRefErrors(t *testing.T) {
	gen := newMagicGen(map[string]any{})
	_, err := gen.value(map[string]any{"$ref": "#/definitions/Missing"})
	assert.Error(t, err)
}

func TestMagicGen_CyclicRefTripsDepthGuard(t *testing.T) {
	root := map[string]any{
		"definitions": map[string]any{
			"Node": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"child": map[string]any{"$ref": "#/definitions/Node"},
				},
			},
		},
	}
	gen := newMagicGen(root)
	_, err := gen.value(map[string]any{"$ref": "#/definitions/Node"})
	assert.Error(t, err)
}
