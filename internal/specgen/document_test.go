package specgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const swagger2Doc = `
swagger: "2.0"
info:
  title: pets
  version: "1.0"
basePath: /v1
securityDefinitions:
  bearerAuth:
    type: http
    scheme: bearer
paths:
  /pets:
    post:
      operationId: createPet
      tags: [pets]
      security:
        - bearerAuth: []
      parameters:
        - in: body
          name: body
          schema:
            type: object
            required: [name]
            properties:
              name: { type: string }
      responses:
        "201":
          description: created
          schema:
            type: object
            properties:
              id: { type: string, format: uuid }
              name: { type: string }
    get:
      operationId: listPets
      tags: [pets]
      responses:
        "200":
          description: ok
  /pets/{petId}:
    get:
      operationId: getPet
      tags: [pets]
      parameters:
        - in: path
          name: petId
          type: string
      responses:
        "200":
          description: ok
          schema:
            type: object
            properties:
              id: { type: string }
    delete:
      operationId: deletePet
      deprecated: true
      tags: [pets]
      parameters:
        - in: path
          name: petId
          type: string
      responses:
        "204":
          description: no content
`

const openapi3Doc = `
openapi: "3.0.0"
info:
  title: pets
  version: "1.0"
paths:
  /pets:
    post:
      operationId: createPet
      tags: [pets]
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                name: { type: string }
      responses:
        "201":
          description: created
          content:
            application/json:
              schema:
                type: object
                properties:
                  id: { type: string }
`

func TestParseDocument_Swagger2(t *testing.T) {
	doc, err := ParseDocument([]byte(swagger2Doc))
	require.NoError(t, err)
	assert.False(t, doc.IsV3)
	assert.Equal(t, "/v1", doc.BasePath)
	assert.Len(t, doc.Endpoints, 4)

	var create Endpoint
	for _, ep := range doc.Endpoints {
		if ep.OperationID == "createPet" {
			create = ep
		}
	}
	assert.Equal(t, "POST", create.Method)
	assert.Equal(t, 201, create.SuccessStatus)
	require.NotNil(t, create.RequestSchema)
	require.Len(t, create.Security, 1)
	assert.Equal(t, "bearer", create.Security[0].Type)
}

func TestParseDocument_OpenAPI3(t *testing.T) {
	doc, err := ParseDocument([]byte(openapi3Doc))
	require.NoError(t, err)
	assert.True(t, doc.IsV3)
	require.Len(t, doc.Endpoints, 1)
	assert.NotNil(t, doc.Endpoints[0].RequestSchema)
	assert.NotNil(t, doc.Endpoints[0].ResponseSchema)
}

func TestParseDocument_RejectsInvalidSwagger2(t *testing.T) {
	_, err := ParseDocument([]byte("swagger: \"2.0\"\n"))
	assert.Error(t, err)
}
