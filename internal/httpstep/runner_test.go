package httpstep

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicpulse/quicpulse/internal/auth"
	"github.com/quicpulse/quicpulse/internal/workflow"
)

func TestRunner_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"42"}`))
	}))
	defer srv.Close()

	runner := &Runner{BaseURL: srv.URL}
	step := &workflow.Step{Name: "get", Method: "GET", URL: "/items"}

	res, err := runner.RunStep(t.Context(), step, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	body, ok := res.Body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "42", body["id"])
}

func TestRunner_BasicAuthApplied(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	runner := &Runner{
		BaseURL:   srv.URL,
		Providers: map[string]auth.Provider{"default": auth.Basic{UserPass: "alice:secret"}},
	}
	step := &workflow.Step{Name: "get", Method: "GET", URL: "/", Auth: "default"}

	_, err := runner.RunStep(t.Context(), step, nil)
	require.NoError(t, err)
	assert.Equal(t, "Basic YWxpY2U6c2VjcmV0", gotAuth)
}

func TestRunner_RendersURLAndHeadersAgainstVars(t *testing.T) {
	var gotPath, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("X-User")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	runner := &Runner{BaseURL: srv.URL}
	step := &workflow.Step{
		Name:    "get_user",
		Method:  "GET",
		URL:     "/users/{{user_id}}",
		Headers: map[string]string{"X-User": "{{user_id}}"},
	}

	_, err := runner.RunStep(t.Context(), step, map[string]any{"user_id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/users/42", gotPath)
	assert.Equal(t, "42", gotHeader)
}

func TestRunner_FormBody(t *testing.T) {
	var gotBody string
	var gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	runner := &Runner{BaseURL: srv.URL}
	step := &workflow.Step{
		Name:   "post",
		Method: "POST",
		URL:    "/submit",
		Form:   map[string]string{"name": "bob"},
	}

	_, err := runner.RunStep(t.Context(), step, nil)
	require.NoError(t, err)
	assert.Contains(t, gotCT, "application/x-www-form-urlencoded")
	assert.Equal(t, "name=bob", gotBody)
}
