package oauth2

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rakunlabs/ada"
	mlog "github.com/rakunlabs/ada/middleware/log"
	mrecover "github.com/rakunlabs/ada/middleware/recover"
)

// AuthCodeConfig describes an authorization-code (+ optional PKCE) flow,
// per spec §4.1.5.
type AuthCodeConfig struct {
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	PKCE         bool

	// OpenBrowser, when set, is used to launch the user's browser on the
	// authorization URL; a nil func falls back to printing the URL.
	OpenBrowser func(url string)
}

// randomURLSafe returns base64url(n random bytes), no padding.
func randomURLSafe(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// pkceChallenge computes base64url(sha256(verifier)) with no padding
// (spec P15, method S256).
func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

type callbackResult struct {
	code  string
	state string
	err   string
}

// AuthorizationCode runs the full flow: build the authorization URL, open a
// loopback listener on the redirect URI's port, accept exactly one
// connection, exchange the code for a token.
func AuthorizationCode(ctx context.Context, cfg AuthCodeConfig) (CachedToken, error) {
	state, err := randomURLSafe(32)
	if err != nil {
		return CachedToken{}, fmt.Errorf("generate state: %w", err)
	}

	var verifier, challenge string
	if cfg.PKCE {
		verifier, err = randomURLSafe(32)
		if err != nil {
			return CachedToken{}, fmt.Errorf("generate pkce verifier: %w", err)
		}
		challenge = pkceChallenge(verifier)
	}

	authURL, err := buildAuthURL(cfg, state, challenge)
	if err != nil {
		return CachedToken{}, err
	}

	redirect, err := url.Parse(cfg.RedirectURI)
	if err != nil {
		return CachedToken{}, fmt.Errorf("parse redirect_uri: %w", err)
	}

	resultCh := make(chan callbackResult, 1)

	mux := ada.New()
	mux.Use(mrecover.Middleware(), mlog.Middleware())
	mux.GET("/", func(w http.ResponseWriter, r *http.Request) {
		handleCallback(w, r, state, resultCh)
	})
	mux.GET(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		handleCallback(w, r, state, resultCh)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:"+redirect.Port())
	if err != nil {
		return CachedToken{}, fmt.Errorf("listen on redirect port %s: %w", redirect.Port(), err)
	}

	srvDone := make(chan error, 1)
	go func() { srvDone <- http.Serve(ln, mux) }()

	if cfg.OpenBrowser != nil {
		cfg.OpenBrowser(authURL)
	} else {
		fmt.Println("Open this URL to authorize:", authURL)
	}

	var cb callbackResult
	select {
	case cb = <-resultCh:
	case <-ctx.Done():
		ln.Close()
		return CachedToken{}, ctx.Err()
	case <-time.After(5 * time.Minute):
		ln.Close()
		return CachedToken{}, fmt.Errorf("timed out waiting for authorization callback")
	}
	ln.Close()

	if cb.err != "" {
		return CachedToken{}, fmt.Errorf("authorization server returned error: %s", cb.err)
	}
	if cb.state != state {
		return CachedToken{}, fmt.Errorf("state mismatch: csrf check failed")
	}
	if cb.code == "" {
		return CachedToken{}, fmt.Errorf("callback did not include an authorization code")
	}

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {cb.code},
		"redirect_uri": {cfg.RedirectURI},
		"client_id":    {cfg.ClientID},
	}
	if cfg.ClientSecret != "" {
		form.Set("client_secret", cfg.ClientSecret)
	}
	if cfg.PKCE {
		form.Set("code_verifier", verifier)
	}

	return exchangeToken(ctx, cfg.TokenURL, form, "", "")
}

func buildAuthURL(cfg AuthCodeConfig, state, challenge string) (string, error) {
	u, err := url.Parse(cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("parse authorization_url: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", cfg.ClientID)
	q.Set("redirect_uri", cfg.RedirectURI)
	q.Set("state", state)
	if len(cfg.Scopes) > 0 {
		q.Set("scope", strings.Join(cfg.Scopes, " "))
	}
	if challenge != "" {
		q.Set("code_challenge", challenge)
		q.Set("code_challenge_method", "S256")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

const callbackPage = `<!doctype html><html><body><h3>%s</h3><p>You can close this window.</p></body></html>`

func handleCallback(w http.ResponseWriter, r *http.Request, expectedState string, resultCh chan<- callbackResult) {
	q := r.URL.Query()
	res := callbackResult{
		code:  q.Get("code"),
		state: q.Get("state"),
		err:   q.Get("error"),
	}

	status := http.StatusOK
	message := "Authorized"
	if res.err != "" {
		status = http.StatusBadRequest
		message = "Authorization failed: " + res.err
	} else if res.state != expectedState {
		status = http.StatusBadRequest
		message = "State mismatch"
		res.err = "state_mismatch"
	}

	body := []byte(fmt.Sprintf(callbackPage, message))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)

	select {
	case resultCh <- res:
	default:
	}
}
