package auth

import (
	"context"

	"github.com/quicpulse/quicpulse/internal/auth/oauth2"
	"github.com/quicpulse/quicpulse/internal/model"
)

// OAuth2ClientCredentials signs requests using a cached client-credentials
// token, consulting the process-wide Cache to prevent thundering herd
// (spec §4.1.4).
type OAuth2ClientCredentials struct {
	Config oauth2.Config
	Cache  *oauth2.Cache
}

func (o OAuth2ClientCredentials) cache() *oauth2.Cache {
	if o.Cache != nil {
		return o.Cache
	}
	return oauth2.DefaultCache()
}

func (o OAuth2ClientCredentials) Apply(ctx context.Context, req *Request) error {
	fp := o.Config.Fingerprint()
	tok, err := o.cache().Get(ctx, fp, oauth2.ClientCredentials(ctx, o.Config))
	if err != nil {
		if rej, ok := err.(*oauth2.RemoteRejectedError); ok {
			return authErr(model.KindAuth, "verify client_id/client_secret/token_url", rej, "oauth2 token server rejected request: %s", rej.Body)
		}
		return authErr(model.KindAuth, "check token_url reachability and client credentials", err, "fetch oauth2 client-credentials token")
	}
	req.Header.Set("Authorization", tok.TokenType+" "+tok.AccessToken)
	if tok.TokenType == "" {
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	}
	return nil
}

// OAuth2AuthCode signs requests with a token obtained via the PKCE
// authorization-code flow, run once and cached for the process lifetime.
type OAuth2AuthCode struct {
	Config oauth2.AuthCodeConfig
	cached *oauth2.CachedToken
}

func (o *OAuth2AuthCode) Apply(ctx context.Context, req *Request) error {
	if o.cached == nil || !o.cached.IsValid() {
		tok, err := oauth2.AuthorizationCode(ctx, o.Config)
		if err != nil {
			return authErr(model.KindAuth, "retry the authorization flow; ensure the redirect_uri port is free", err, "oauth2 authorization-code flow failed")
		}
		o.cached = &tok
	}
	req.Header.Set("Authorization", "Bearer "+o.cached.AccessToken)
	return nil
}

// OAuth2Device signs requests with a token obtained via the device flow.
type OAuth2Device struct {
	Config oauth2.DeviceConfig
	cached *oauth2.CachedToken
}

func (o *OAuth2Device) Apply(ctx context.Context, req *Request) error {
	if o.cached == nil || !o.cached.IsValid() {
		tok, err := oauth2.Device(ctx, o.Config)
		if err != nil {
			return authErr(model.KindAuth, "retry: run the device flow again and visit the verification URL promptly", err, "oauth2 device flow failed")
		}
		o.cached = &tok
	}
	req.Header.Set("Authorization", "Bearer "+o.cached.AccessToken)
	return nil
}
