package oauth2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPKCEChallenge_MatchesS4Vector covers P15/S4: a known verifier must
// produce the exact base64url(sha256(verifier)) challenge with no padding.
func TestPKCEChallenge_MatchesS4Vector(t *testing.T) {
	const verifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	const wantChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	assert.Equal(t, wantChallenge, pkceChallenge(verifier))
}

func TestPKCEChallenge_NoPadding(t *testing.T) {
	challenge := pkceChallenge("some-arbitrary-verifier-string-value")
	assert.NotContains(t, challenge, "=")
}

func TestRandomURLSafe_ProducesUnpaddedUniqueValues(t *testing.T) {
	a, err := randomURLSafe(32)
	require.NoError(t, err)
	b, err := randomURLSafe(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "two independently generated verifiers must not collide")
	assert.NotContains(t, a, "=")
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}
