package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasic_EncodesUserPass(t *testing.T) {
	req := &Request{Header: http.Header{}}
	require.NoError(t, Basic{UserPass: "alice:secret"}.Apply(t.Context(), req))
	assert.Equal(t, "Basic YWxpY2U6c2VjcmV0", req.Header.Get("Authorization"))
}

func TestBasic_NoColonTreatedAsUsernameOnly(t *testing.T) {
	req := &Request{Header: http.Header{}}
	require.NoError(t, Basic{UserPass: "alice"}.Apply(t.Context(), req))
	assert.Equal(t, "Basic YWxpY2U6", req.Header.Get("Authorization"))
}

func TestBasic_MissingCredentialErrors(t *testing.T) {
	req := &Request{Header: http.Header{}}
	err := Basic{}.Apply(t.Context(), req)
	assert.Error(t, err)
}

func TestBearer_SetsAuthorizationHeader(t *testing.T) {
	req := &Request{Header: http.Header{}}
	require.NoError(t, Bearer{Token: "abc123"}.Apply(t.Context(), req))
	assert.Equal(t, "Bearer abc123", req.Header.Get("Authorization"))
}

func TestBearer_MissingTokenErrors(t *testing.T) {
	req := &Request{Header: http.Header{}}
	err := Bearer{}.Apply(t.Context(), req)
	assert.Error(t, err)
}
