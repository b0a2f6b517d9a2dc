// Package auth implements the ten QuicPulse authentication providers
// (spec §4.1): Basic, Bearer, Digest, NTLM/Negotiate/Kerberos (capability
// stubs), AWS SigV4, GCP, Azure, and the three OAuth2 flows. The package
// follows the teacher's TokenSource pattern from
// internal/service/llm/openai/auth.go, generalized from a single LLM
// provider's Copilot-JWT exchange into a pluggable provider registry.
package auth

import (
	"context"
	"net/http"

	"github.com/quicpulse/quicpulse/internal/model"
)

// Type names the ten provider kinds, matching spec §4.1.1 and the
// --auth-type CLI flag's accepted values.
type Type string

const (
	TypeBasic          Type = "basic"
	TypeBearer         Type = "bearer"
	TypeDigest         Type = "digest"
	TypeNTLM           Type = "ntlm"
	TypeNegotiate      Type = "negotiate"
	TypeKerberos       Type = "kerberos"
	TypeAWSSigV4       Type = "aws-sigv4"
	TypeGCP            Type = "gcp"
	TypeAzure          Type = "azure"
	TypeOAuth2         Type = "oauth2"
	TypeOAuth2AuthCode Type = "oauth2-authcode"
	TypeOAuth2Device   Type = "oauth2-device"
)

// Request is the minimal request shape a Provider needs to sign or decorate.
// RequestAssembler and RedirectExecutor adapt *http.Request to/from this
// shape so auth providers never depend on net/http directly except where
// they genuinely need it (GCP/Azure CLI calls, OAuth2 HTTP round trips).
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Compressed reports whether Body already reflects the on-wire bytes
	// after compression — SigV4 must sign those bytes, not the pre-compression form.
	Compressed bool
}

// Provider is the capability set every authentication strategy implements
// (spec §4.1.1's "polymorphic over {apply, resolveCredentials}").
type Provider interface {
	// Apply mutates req in place, adding whatever headers/query the
	// strategy requires (Authorization, x-amz-*, etc).
	Apply(ctx context.Context, req *Request) error
}

// Retryable is implemented by providers with a two-round-trip challenge
// (currently only Digest): on a 401 response, HandleChallenge rebuilds the request
// with the challenge response header, using the same body bytes and method.
type Retryable interface {
	Provider
	HandleChallenge(ctx context.Context, resp *http.Response, req *Request) (retry bool, err error)
}

// authErr builds a model.Error of kind Auth carrying a remediation hint, the
// shape every provider in this package must return on failure (spec §4.1.2).
func authErr(kind model.Kind, hint string, cause error, format string, args ...any) *model.Error {
	e := model.Errorf(kind, cause, format, args...)
	return e.WithHint(hint)
}
