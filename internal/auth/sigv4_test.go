package auth

import (
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAWSSigV4_ExplicitCredentialsTakePrecedenceOverEnv(t *testing.T) {
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "env-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")

	a := AWSSigV4{
		ExplicitAccessKey: "explicit-key",
		ExplicitSecretKey: "explicit-secret",
		Region:            "us-east-1",
		Service:           "execute-api",
	}
	req := &Request{
		Method: "GET",
		URL:    "https://api.example.com/widgets",
		Header: http.Header{},
	}

	require.NoError(t, a.Apply(t.Context(), req))
	assert.Contains(t, req.Header.Get("Authorization"), "Credential=explicit-key/")
}

func TestAWSSigV4_FallsBackToEnvCredentials(t *testing.T) {
	os.Unsetenv("AWS_PROFILE")
	t.Setenv("AWS_ACCESS_KEY_ID", "env-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")

	a := AWSSigV4{Region: "us-east-1", Service: "execute-api"}
	req := &Request{
		Method: "GET",
		URL:    "https://api.example.com/widgets",
		Header: http.Header{},
	}

	require.NoError(t, a.Apply(t.Context(), req))
	assert.Contains(t, req.Header.Get("Authorization"), "Credential=env-key/")
}

func TestAWSSigV4_NoCredentialsErrors(t *testing.T) {
	os.Unsetenv("AWS_PROFILE")
	os.Unsetenv("AWS_ACCESS_KEY_ID")
	os.Unsetenv("AWS_SECRET_ACCESS_KEY")

	a := AWSSigV4{}
	req := &Request{Method: "GET", URL: "https://api.example.com/widgets", Header: http.Header{}}

	err := a.Apply(t.Context(), req)
	assert.Error(t, err)
}

func TestAWSSigV4_InfersServiceAndRegionFromHost(t *testing.T) {
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "env-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")

	a := AWSSigV4{}
	req := &Request{
		Method: "GET",
		URL:    "https://dynamodb.us-west-2.amazonaws.com/",
		Header: http.Header{},
	}

	require.NoError(t, a.Apply(t.Context(), req))
	assert.Contains(t, req.Header.Get("Authorization"), "/us-west-2/dynamodb/aws4_request")
}
