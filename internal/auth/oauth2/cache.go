// Package oauth2 implements the three OAuth2 providers (client-credentials,
// authorization-code with PKCE, device flow) and the shared CachedToken/
// fingerprint cache, grounded on the teacher's CopilotTokenSource
// (internal/service/llm/openai/auth.go) generalized from one hardcoded
// provider into a process-wide fingerprint-keyed map, as spec §3.4/§4.1.4
// require.
package oauth2

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
)

// CachedToken mirrors spec §3.3 exactly, including the 30s/300s margins.
type CachedToken struct {
	AccessToken  string
	TokenType    string
	ObtainedAt   time.Time
	ExpiresIn    *time.Duration
	RefreshToken string
}

// IsValid implements "expires_in.isNone() OR elapsed <= expires_in − 30s",
// with elapsed counted in whole seconds.
func (t CachedToken) IsValid() bool {
	if t.ExpiresIn == nil {
		return true
	}
	elapsed := time.Since(t.ObtainedAt).Truncate(time.Second)
	return elapsed <= *t.ExpiresIn-30*time.Second
}

// NeedsRefresh implements "expires_in.isSome() AND elapsed > expires_in − 300s".
func (t CachedToken) NeedsRefresh() bool {
	if t.ExpiresIn == nil {
		return false
	}
	elapsed := time.Since(t.ObtainedAt)
	return elapsed > *t.ExpiresIn-300*time.Second
}

func (t CachedToken) CanRefresh() bool {
	return t.RefreshToken != ""
}

// Config is the minimal shape needed to compute the cache fingerprint
// (spec §3.4) and to perform the client-credentials exchange.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Fingerprint computes hash(token_url ‖ client_id ‖ sha256(client_secret) ‖
// sorted(scopes)); the secret is never stored or logged raw in the key.
func (c Config) Fingerprint() string {
	secretHash := sha256.Sum256([]byte(c.ClientSecret))
	scopes := append([]string(nil), c.Scopes...)
	sort.Strings(scopes)

	h := sha256.New()
	h.Write([]byte(c.TokenURL))
	h.Write([]byte{0})
	h.Write([]byte(c.ClientID))
	h.Write([]byte{0})
	h.Write(secretHash[:])
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(scopes, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is the process-wide, thread-safe fingerprint -> CachedToken map plus
// its companion in-flight set, implementing the thundering-herd prevention
// algorithm of spec §4.1.4. It is the package's one unavoidable singleton
// (spec §9 "Process-wide state"), initialized lazily via DefaultCache.
type Cache struct {
	mu       sync.Mutex
	tokens   map[string]CachedToken
	inFlight map[string]chan struct{}
}

// NewCache constructs an empty cache. Tests construct their own instance
// instead of sharing DefaultCache, keeping runs independent.
func NewCache() *Cache {
	return &Cache{
		tokens:   make(map[string]CachedToken),
		inFlight: make(map[string]chan struct{}),
	}
}

var (
	defaultCacheOnce sync.Once
	defaultCache     *Cache
)

// DefaultCache returns the process-wide cache, created on first use.
func DefaultCache() *Cache {
	defaultCacheOnce.Do(func() { defaultCache = NewCache() })
	return defaultCache
}

// Fetcher performs the actual token-issuing HTTP round trip; it is called
// at most once per fingerprint among concurrent Get callers.
type Fetcher func(ctx context.Context) (CachedToken, error)

// Get implements spec §4.1.4 steps 1-2/5: return cached if valid; otherwise
// exactly one caller becomes the owner and calls fetch, publishing the
// result; all others poll the cache every 50ms until the owner publishes.
func (c *Cache) Get(ctx context.Context, fingerprint string, fetch Fetcher) (CachedToken, error) {
	for {
		c.mu.Lock()
		if tok, ok := c.tokens[fingerprint]; ok && tok.IsValid() {
			c.mu.Unlock()
			return tok, nil
		}

		if done, owned := c.inFlight[fingerprint]; owned {
			c.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return CachedToken{}, ctx.Err()
			case <-time.After(50 * time.Millisecond):
				continue
			}
		}

		done := make(chan struct{})
		c.inFlight[fingerprint] = done
		c.mu.Unlock()

		tok, err := c.fetchAndPublish(ctx, fingerprint, done, fetch)
		return tok, err
	}
}

// fetchAndPublish owns the fingerprint's in-flight slot and guarantees its
// removal — including on panic or context cancellation — via a scoped
// defer, matching spec §4.1.4's "scoped release" requirement.
func (c *Cache) fetchAndPublish(ctx context.Context, fingerprint string, done chan struct{}, fetch Fetcher) (tok CachedToken, err error) {
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, fingerprint)
		c.mu.Unlock()
		close(done)
	}()

	tok, err = fetch(ctx)
	if err != nil {
		return CachedToken{}, err
	}

	c.mu.Lock()
	c.tokens[fingerprint] = tok
	c.mu.Unlock()

	return tok, nil
}

// Invalidate drops a cached token, e.g. after a RemoteRejected response
// using a previously-valid token.
func (c *Cache) Invalidate(fingerprint string) {
	c.mu.Lock()
	delete(c.tokens, fingerprint)
	c.mu.Unlock()
}
