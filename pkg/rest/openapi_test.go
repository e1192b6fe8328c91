package rest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petstore = `openapi: 3.0.3
info:
  title: Petstore
  version: 1.0.0
servers:
  - url: https://api.example.com/v1
paths:
  /pets:
    get:
      operationId: listPets
      responses:
        "200":
          description: ok
    post:
      operationId: createPet
      responses:
        "201":
          description: created
  /pets/{petId}:
    get:
      operationId: getPet
      parameters:
        - name: petId
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          description: ok
`

func TestOpenAPI_OperationID(t *testing.T) {
	api, err := ParseOpenAPI([]byte(petstore))
	require.NoError(t, err)
	assert.Equal(t, "Petstore", api.Title())

	id, ok := api.OperationID("GET", "/pets/42")
	assert.True(t, ok)
	assert.Equal(t, "getPet", id)

	id, ok = api.OperationID("POST", "/pets")
	assert.True(t, ok)
	assert.Equal(t, "createPet", id)

	_, ok = api.OperationID("DELETE", "/pets/42")
	assert.False(t, ok)
	_, ok = api.OperationID("GET", "/owners")
	assert.False(t, ok)
}

func TestOpenAPI_CheckRoutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(petstore), 0o600))
	api, err := LoadOpenAPI(path)
	require.NoError(t, err)

	assert.NoError(t, api.CheckRoutes([]Route{
		Endpoint("get", "/pets"),
		Endpoint("GET", "/pets/7"),
	}))

	err = api.CheckRoutes([]Route{
		Endpoint("GET", "/pets"),
		Endpoint("PUT", "/pets/7"),
		Endpoint("GET", "/stores"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUT /pets/7")
	assert.Contains(t, err.Error(), "GET /stores")
	assert.NotContains(t, err.Error(), "GET /pets\n")
}

func TestOpenAPI_Invalid(t *testing.T) {
	_, err := ParseOpenAPI([]byte("openapi: 3.0.3\npaths: {}\n"))
	assert.Error(t, err)

	_, err = LoadOpenAPI(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
