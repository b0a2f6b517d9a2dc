package specgen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ProducesCreateThenReadWorkflow(t *testing.T) {
	wf, err := Generate([]byte(swagger2Doc), Options{})
	require.NoError(t, err)
	assert.Equal(t, "/v1", wf.BaseURL)
	require.True(t, len(wf.Steps) >= 2)

	createIdx, getIdx := -1, -1
	for i, s := range wf.Steps {
		if s.Name == "createPet" {
			createIdx = i
		}
		if s.Name == "getPet" {
			getIdx = i
		}
	}
	require.GreaterOrEqual(t, createIdx, 0)
	require.GreaterOrEqual(t, getIdx, 0)
	assert.Less(t, createIdx, getIdx)

	createStep := wf.Steps[createIdx]
	assert.NotEmpty(t, createStep.Body)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(createStep.Body), &body))
	assert.Contains(t, body, "name")
	assert.Equal(t, "201", createStep.Assert.Status)
	assert.Equal(t, "body.id", createStep.Extract["pet_id"])

	getStep := wf.Steps[getIdx]
	assert.Contains(t, getStep.URL, "{{pet_id}}")

	assert.Equal(t, "Bearer ${API_TOKEN}", wf.GlobalHeaders["Authorization"])
}

func TestGenerate_DeprecatedEndpointExcludedByDefault(t *testing.T) {
	wf, err := Generate([]byte(swagger2Doc), Options{})
	require.NoError(t, err)
	for _, s := range wf.Steps {
		assert.NotEqual(t, "deletePet", s.Name)
	}
}

func TestGenerate_OpenAPI3Document(t *testing.T) {
	wf, err := Generate([]byte(openapi3Doc), Options{})
	require.NoError(t, err)
	require.Len(t, wf.Steps, 1)
	assert.Equal(t, "createPet", wf.Steps[0].Name)
	assert.NotEmpty(t, wf.Steps[0].Body)
}
