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

// DeviceConfig describes a device-authorization flow (spec §4.1.6, RFC
// 8628), grounded on the teacher's GitHub device-flow implementation
// (internal/server/auth_device.go) generalized from a hardcoded GitHub
// client ID to an arbitrary device_auth_url/token_url pair.
type DeviceConfig struct {
	DeviceAuthURL string
	TokenURL      string
	ClientID      string
	Scopes        []string

	// OnUserCode is called once the device code has been issued, so the
	// caller can print the user_code/verification_uri (or show a dialog).
	OnUserCode func(userCode, verificationURI, verificationURIComplete string)
}

type deviceCodeResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

// Device runs the full device-authorization flow: request a device code,
// notify the caller, then poll the token endpoint until authorized, denied,
// or expired.
func Device(ctx context.Context, cfg DeviceConfig) (CachedToken, error) {
	dev, err := requestDeviceCode(ctx, cfg)
	if err != nil {
		return CachedToken{}, err
	}

	if cfg.OnUserCode != nil {
		cfg.OnUserCode(dev.UserCode, dev.VerificationURI, dev.VerificationURIComplete)
	}

	interval := time.Duration(dev.Interval) * time.Second
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(time.Duration(dev.ExpiresIn) * time.Second)

	for {
		select {
		case <-ctx.Done():
			return CachedToken{}, ctx.Err()
		case <-time.After(interval):
		}

		if time.Now().After(deadline) {
			return CachedToken{}, fmt.Errorf("device code expired")
		}

		tok, pending, slowDown, err := pollDeviceToken(ctx, cfg, dev.DeviceCode)
		if err != nil {
			return CachedToken{}, err
		}
		if slowDown {
			interval += 5 * time.Second
			continue
		}
		if pending {
			continue
		}
		return tok, nil
	}
}

func requestDeviceCode(ctx context.Context, cfg DeviceConfig) (*deviceCodeResponse, error) {
	form := url.Values{"client_id": {cfg.ClientID}}
	if len(cfg.Scopes) > 0 {
		form.Set("scope", strings.Join(cfg.Scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.DeviceAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build device code request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device code request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read device code response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("device auth endpoint returned %d: %s", resp.StatusCode, body)
	}

	var dev deviceCodeResponse
	if err := json.Unmarshal(body, &dev); err != nil {
		return nil, fmt.Errorf("parse device code response: %w", err)
	}
	if dev.DeviceCode == "" || dev.UserCode == "" {
		return nil, fmt.Errorf("device auth endpoint returned empty device/user code")
	}
	if dev.Interval == 0 {
		dev.Interval = 5
	}

	return &dev, nil
}

// pollDeviceToken polls once, distinguishing pending/slow_down from terminal errors.
func pollDeviceToken(ctx context.Context, cfg DeviceConfig, deviceCode string) (tok CachedToken, pending, slowDown bool, err error) {
	form := url.Values{
		"client_id":   {cfg.ClientID},
		"device_code": {deviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
	}

	req, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
	if buildErr != nil {
		return CachedToken{}, false, false, fmt.Errorf("build poll request: %w", buildErr)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, reqErr := http.DefaultClient.Do(req)
	if reqErr != nil {
		return CachedToken{}, false, false, fmt.Errorf("poll request failed: %w", reqErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return CachedToken{}, false, false, fmt.Errorf("read poll response: %w", readErr)
	}

	var parsed struct {
		tokenSuccessResponse
		tokenErrorResponse
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return CachedToken{}, false, false, fmt.Errorf("parse poll response: %w", err)
	}

	switch parsed.Error {
	case "":
		if parsed.AccessToken == "" {
			return CachedToken{}, false, false, fmt.Errorf("token endpoint returned empty access_token")
		}
		t := CachedToken{AccessToken: parsed.AccessToken, TokenType: parsed.TokenType, ObtainedAt: time.Now(), RefreshToken: parsed.RefreshToken}
		if parsed.ExpiresIn != nil {
			d := time.Duration(*parsed.ExpiresIn) * time.Second
			t.ExpiresIn = &d
		}
		return t, false, false, nil

	case "authorization_pending":
		return CachedToken{}, true, false, nil

	case "slow_down":
		return CachedToken{}, true, true, nil

	case "expired_token":
		return CachedToken{}, false, false, fmt.Errorf("device code expired")

	case "access_denied":
		return CachedToken{}, false, false, fmt.Errorf("user denied authorization")

	default:
		return CachedToken{}, false, false, fmt.Errorf("oauth2 device flow error: %s", parsed.Error)
	}
}
