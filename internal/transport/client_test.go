package transport

import (
	"crypto/tls"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultOptions(t *testing.T) {
	c, err := New(ClientOptions{})
	require.NoError(t, err)
	require.NotNil(t, c.HTTP)

	tr, ok := c.HTTP.Transport.(*http.Transport)
	require.True(t, ok)
	assert.False(t, tr.TLSClientConfig.InsecureSkipVerify)
}

func TestNew_InsecureSkipVerify(t *testing.T) {
	c, err := New(ClientOptions{InsecureSkipVerify: true})
	require.NoError(t, err)
	tr := c.HTTP.Transport.(*http.Transport)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
}

func TestNew_SSLVersionPinning(t *testing.T) {
	c, err := New(ClientOptions{SSL: SSLTLS13})
	require.NoError(t, err)
	tr := c.HTTP.Transport.(*http.Transport)
	assert.Equal(t, uint16(tls.VersionTLS13), tr.TLSClientConfig.MinVersion)
}

func TestResolveOverride(t *testing.T) {
	overrides := map[string]string{"example.com:443": "127.0.0.1"}
	addr, ok := resolveOverride(overrides, "example.com:443")
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:443", addr)

	_, ok = resolveOverride(overrides, "other.com:443")
	assert.False(t, ok)
}
