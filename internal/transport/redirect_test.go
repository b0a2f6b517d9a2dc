package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicpulse/quicpulse/internal/model"
)

// P5-adjacent: 302 turns POST into GET and drops the body.
func TestExecute_302DropsBodyAndSwitchesToGet(t *testing.T) {
	var secondHopMethod string
	var secondHopBodyLen int

	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondHopMethod = r.Method
		secondHopBodyLen = int(r.ContentLength)
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", final.URL)
		w.WriteHeader(http.StatusFound)
	}))
	defer first.Close()

	req, err := http.NewRequest(http.MethodPost, first.URL, nil)
	require.NoError(t, err)

	res, err := Execute(context.Background(), http.DefaultClient, req, Options{MaxRedirects: 5})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Response.StatusCode)
	assert.Equal(t, http.MethodGet, secondHopMethod)
	assert.Equal(t, 0, secondHopBodyLen)
}

// 307 preserves method and body.
func TestExecute_307PreservesMethodAndBody(t *testing.T) {
	var secondHopMethod, secondHopBody string

	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondHopMethod = r.Method
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		secondHopBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", final.URL)
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	defer first.Close()

	req, err := http.NewRequest(http.MethodPost, first.URL, strings.NewReader("payload"))
	require.NoError(t, err)

	_, err = Execute(context.Background(), http.DefaultClient, req, Options{MaxRedirects: 5})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, secondHopMethod)
	assert.Equal(t, "payload", secondHopBody)
}

func TestExecute_TooManyRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", srv.URL)
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = Execute(context.Background(), http.DefaultClient, req, Options{MaxRedirects: 2})
	require.Error(t, err)
	var merr *model.Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, model.KindTooManyRedirects, merr.Kind)
}

func TestExecute_ResignCalledOnEachHop(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", final.URL)
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer first.Close()

	var resignedURLs []string
	req, err := http.NewRequest(http.MethodGet, first.URL, nil)
	require.NoError(t, err)

	_, err = Execute(context.Background(), http.DefaultClient, req, Options{
		MaxRedirects: 5,
		Resign: func(ctx context.Context, method, rawURL string, body []byte, header http.Header) error {
			resignedURLs = append(resignedURLs, rawURL)
			header.Set("Authorization", "AWS4-HMAC-SHA256 resigned")
			return nil
		},
	})
	require.NoError(t, err)
	require.Len(t, resignedURLs, 1)
	assert.Equal(t, final.URL+"/", mustNormalize(resignedURLs[0]))
}

func mustNormalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
