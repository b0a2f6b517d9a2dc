package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tokenSuccessResponse / tokenErrorResponse decode the two shapes an OAuth2
// token endpoint can return (spec §4.1.4 step 4).
type tokenSuccessResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    *int   `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// RemoteRejectedError maps an OAuth2 {error, error_description} response.
type RemoteRejectedError struct {
	Status int
	Body   string
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("oauth2 token endpoint rejected request (%d): %s", e.Status, e.Body)
}

// ClientCredentials performs the grant_type=client_credentials exchange
// (spec §4.1.4 step 3), using HTTP Basic for client_id/client_secret.
func ClientCredentials(ctx context.Context, cfg Config) Fetcher {
	return func(ctx context.Context) (CachedToken, error) {
		form := url.Values{"grant_type": {"client_credentials"}}
		if len(cfg.Scopes) > 0 {
			form.Set("scope", strings.Join(cfg.Scopes, " "))
		}
		return exchangeToken(ctx, cfg.TokenURL, form, cfg.ClientID, cfg.ClientSecret)
	}
}

// RefreshToken performs grant_type=refresh_token, per spec §4.1.4:
// "a newly-issued refresh token replaces the old one; otherwise the old one
// is retained."
func RefreshToken(ctx context.Context, tokenURL, clientID, clientSecret, refreshToken string) (CachedToken, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {clientID},
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}

	tok, err := exchangeToken(ctx, tokenURL, form, "", "")
	if err != nil {
		return CachedToken{}, err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

func exchangeToken(ctx context.Context, tokenURL string, form url.Values, basicUser, basicPass string) (CachedToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return CachedToken{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return CachedToken{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CachedToken{}, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp tokenErrorResponse
		_ = json.Unmarshal(body, &errResp)
		msg := errResp.Error
		if errResp.ErrorDescription != "" {
			msg += ": " + errResp.ErrorDescription
		}
		if msg == "" {
			msg = string(body)
		}
		return CachedToken{}, &RemoteRejectedError{Status: resp.StatusCode, Body: msg}
	}

	var ok tokenSuccessResponse
	if err := json.Unmarshal(body, &ok); err != nil {
		return CachedToken{}, fmt.Errorf("parse token response: %w", err)
	}
	if ok.AccessToken == "" {
		return CachedToken{}, fmt.Errorf("token endpoint returned empty access_token")
	}

	tok := CachedToken{
		AccessToken:  ok.AccessToken,
		TokenType:    ok.TokenType,
		ObtainedAt:   time.Now(),
		RefreshToken: ok.RefreshToken,
	}
	if ok.ExpiresIn != nil {
		d := time.Duration(*ok.ExpiresIn) * time.Second
		tok.ExpiresIn = &d
	}
	return tok, nil
}
