package specgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectEndpoints_CRUDOrderWithinPath(t *testing.T) {
	endpoints := []Endpoint{
		{Path: "/pets", Method: "DELETE"},
		{Path: "/pets", Method: "GET"},
		{Path: "/pets", Method: "POST"},
	}
	got := selectEndpoints(endpoints, Options{})
	order := []string{"POST", "GET", "DELETE"}
	for i, ep := range got {
		assert.Equal(t, order[i], ep.Method)
	}
}

func TestSelectEndpoints_FiltersDeprecatedByDefault(t *testing.T) {
	endpoints := []Endpoint{
		{Path: "/pets", Method: "GET"},
		{Path: "/pets/{id}", Method: "DELETE", Deprecated: true},
	}
	got := selectEndpoints(endpoints, Options{})
	assert.Len(t, got, 1)

	got = selectEndpoints(endpoints, Options{IncludeDeprecated: true})
	assert.Len(t, got, 2)
}

func TestSelectEndpoints_FiltersByTagAndMethod(t *testing.T) {
	endpoints := []Endpoint{
		{Path: "/pets", Method: "GET", Tags: []string{"pets"}},
		{Path: "/orders", Method: "GET", Tags: []string{"orders"}},
		{Path: "/orders", Method: "POST", Tags: []string{"orders"}},
	}
	got := selectEndpoints(endpoints, Options{Tags: []string{"orders"}, Methods: []string{"GET"}})
	assert.Len(t, got, 1)
	assert.Equal(t, "/orders", got[0].Path)
}

func TestResourceName(t *testing.T) {
	cases := map[string]string{
		"/pets":              "pet",
		"/pets/{petId}":      "pet",
		"/orders/{id}/items": "item",
		"/categories":        "category",
	}
	for path, want := range cases {
		assert.Equal(t, want, resourceName(path), path)
	}
}

func TestPathParams(t *testing.T) {
	assert.Equal(t, []string{"petId"}, pathParams("/pets/{petId}"))
	assert.Equal(t, []string{"orderId", "itemId"}, pathParams("/orders/{orderId}/items/{itemId}"))
	assert.Nil(t, pathParams("/pets"))
}
