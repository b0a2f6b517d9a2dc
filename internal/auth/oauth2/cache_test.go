package oauth2

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCache_ThunderingHerdSingleFetch covers P3/S3: N concurrent Get calls
// against a cold cache must collapse into exactly one Fetcher invocation,
// and every caller must observe the same published token.
func TestCache_ThunderingHerdSingleFetch(t *testing.T) {
	const n = 50
	var hits atomic.Int32

	fetch := Fetcher(func(ctx context.Context) (CachedToken, error) {
		hits.Add(1)
		time.Sleep(200 * time.Millisecond)
		exp := time.Hour
		return CachedToken{AccessToken: "tok-abc", ExpiresIn: &exp}, nil
	})

	cache := NewCache()

	var wg sync.WaitGroup
	results := make([]CachedToken, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Get(context.Background(), "fp-1", fetch)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "tok-abc", results[i].AccessToken)
	}
}

// TestCache_ReusesValidTokenWithoutRefetching ensures a warm, still-valid
// cache entry short-circuits Get without calling fetch again.
func TestCache_ReusesValidTokenWithoutRefetching(t *testing.T) {
	cache := NewCache()
	var hits atomic.Int32
	fetch := Fetcher(func(ctx context.Context) (CachedToken, error) {
		hits.Add(1)
		exp := time.Hour
		return CachedToken{AccessToken: "tok-1", ExpiresIn: &exp}, nil
	})

	first, err := cache.Get(context.Background(), "fp-2", fetch)
	require.NoError(t, err)
	second, err := cache.Get(context.Background(), "fp-2", fetch)
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, first.AccessToken, second.AccessToken)
}

// TestCache_FetchErrorReleasesInFlightSlot ensures a failed fetch doesn't
// permanently wedge the fingerprint: a subsequent Get must retry.
func TestCache_FetchErrorReleasesInFlightSlot(t *testing.T) {
	cache := NewCache()
	var hits atomic.Int32
	fetch := Fetcher(func(ctx context.Context) (CachedToken, error) {
		if hits.Add(1) == 1 {
			return CachedToken{}, assert.AnError
		}
		exp := time.Hour
		return CachedToken{AccessToken: "tok-recovered", ExpiresIn: &exp}, nil
	})

	_, err := cache.Get(context.Background(), "fp-3", fetch)
	require.Error(t, err)

	tok, err := cache.Get(context.Background(), "fp-3", fetch)
	require.NoError(t, err)
	assert.Equal(t, "tok-recovered", tok.AccessToken)
}

// TestCachedToken_IsValid_RefreshMarginBoundary covers P4's exact boundary:
// expires_in=1000s, elapsed=970s reports valid, elapsed=971s invalid.
func TestCachedToken_IsValid_RefreshMarginBoundary(t *testing.T) {
	expiresIn := 1000 * time.Second

	validAtBoundary := CachedToken{
		ObtainedAt: time.Now().Add(-970 * time.Second),
		ExpiresIn:  &expiresIn,
	}
	assert.True(t, validAtBoundary.IsValid(), "elapsed=970s must still be valid (970 <= 1000-30)")

	invalidPastBoundary := CachedToken{
		ObtainedAt: time.Now().Add(-971 * time.Second),
		ExpiresIn:  &expiresIn,
	}
	assert.False(t, invalidPastBoundary.IsValid(), "elapsed=971s must be invalid")
}

func TestCachedToken_IsValid_NoExpiryNeverExpires(t *testing.T) {
	tok := CachedToken{ObtainedAt: time.Now().Add(-24 * time.Hour)}
	assert.True(t, tok.IsValid())
}

func TestCachedToken_NeedsRefresh_Margin(t *testing.T) {
	expiresIn := 1000 * time.Second
	notYet := CachedToken{ObtainedAt: time.Now().Add(-699 * time.Second), ExpiresIn: &expiresIn}
	assert.False(t, notYet.NeedsRefresh())

	due := CachedToken{ObtainedAt: time.Now().Add(-701 * time.Second), ExpiresIn: &expiresIn}
	assert.True(t, due.NeedsRefresh())
}

func TestConfig_FingerprintStableAndSensitiveToInputs(t *testing.T) {
	a := Config{TokenURL: "https://auth.example.com/token", ClientID: "abc", ClientSecret: "s3cret", Scopes: []string{"read", "write"}}
	b := Config{TokenURL: "https://auth.example.com/token", ClientID: "abc", ClientSecret: "s3cret", Scopes: []string{"write", "read"}}
	c := Config{TokenURL: "https://auth.example.com/token", ClientID: "abc", ClientSecret: "different", Scopes: []string{"read", "write"}}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "scope order must not affect the fingerprint")
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint(), "a different secret must change the fingerprint")
	assert.NotContains(t, a.Fingerprint(), "s3cret", "the fingerprint must not embed the raw secret")
}
