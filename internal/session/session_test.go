package session

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsEmptySession(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir, "dev")
	require.NoError(t, err)
	assert.Equal(t, "dev", s.Name)
	assert.Empty(t, s.Cookies)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := New("dev")
	s.BaseURL = "https://api.example.com"
	s.Headers["Authorization"] = "Bearer abc"
	s.Cookies = append(s.Cookies, Cookie{Name: "sid", Value: "xyz", Domain: "example.com", Path: "/", Secure: true})

	require.NoError(t, Save(dir, s))

	loaded, err := Load(dir, "dev")
	require.NoError(t, err)
	assert.Equal(t, s.BaseURL, loaded.BaseURL)
	assert.Equal(t, "Bearer abc", loaded.Headers["Authorization"])
	require.Len(t, loaded.Cookies, 1)
	assert.Equal(t, "sid", loaded.Cookies[0].Name)
}

func TestToDefaults_CarriesHeadersAndBaseURL(t *testing.T) {
	s := New("dev")
	s.BaseURL = "https://api.example.com"
	s.Headers["X-Team"] = "infra"

	defaults := s.ToDefaults()
	assert.Equal(t, "https://api.example.com", defaults.BaseURL)
	assert.Equal(t, "infra", defaults.Headers.Get("X-Team"))
}

func TestJar_ExpiredCookieExcluded(t *testing.T) {
	s := New("dev")
	s.Cookies = []Cookie{
		{Name: "fresh", Value: "1", Domain: "example.com", Path: "/"},
		{Name: "stale", Value: "2", Domain: "example.com", Path: "/", Expires: time.Now().Add(-time.Hour)},
	}
	jar, err := s.Jar()
	require.NoError(t, err)

	u, _ := url.Parse("http://example.com/")
	cookies := jar.Cookies(u)
	names := map[string]bool{}
	for _, c := range cookies {
		names[c.Name] = true
	}
	assert.True(t, names["fresh"])
	assert.False(t, names["stale"])
}

func TestRecordResponse_UpdatesExistingCookieByNameDomainPath(t *testing.T) {
	s := New("dev")
	s.Cookies = []Cookie{{Name: "sid", Value: "old", Domain: "example.com", Path: "/"}}

	u, _ := url.Parse("https://example.com/")
	s.RecordResponse(u, []*http.Cookie{{Name: "sid", Value: "new", Path: "/"}})

	require.Len(t, s.Cookies, 1)
	assert.Equal(t, "new", s.Cookies[0].Value)
	assert.Equal(t, "example.com", s.Cookies[0].Domain)
}
