package awsauth

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ssoCacheFile matches the JSON shape aws sso login writes to
// ~/.aws/sso/cache/<sha1(start_url)>.json.
type ssoCacheFile struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt"`
}

// SSOCachePath returns the cache file path for a given SSO start URL, per
// spec §6.2's "SSO cache key — SHA-1 hex of the SSO start URL".
func SSOCachePath(startURL string) string {
	home, _ := os.UserHomeDir()
	sum := sha1.Sum([]byte(startURL))
	return filepath.Join(home, ".aws", "sso", "cache", hex.EncodeToString(sum[:])+".json")
}

// ResolveSSO reads the cached SSO access token and exchanges it for
// short-term credentials via the SSO federation/credentials endpoint
// (spec §4.1.3.b).
func ResolveSSO(sso *SSOBlock) (Credentials, error) {
	path := SSOCachePath(sso.StartURL)
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, authProfileErr("run `aws sso login --profile <name>`", err, "sso cache file not found: %s", path)
	}

	var cache ssoCacheFile
	if err := json.Unmarshal(data, &cache); err != nil {
		return Credentials{}, authProfileErr("run `aws sso login --profile <name>`", err, "parse sso cache file")
	}

	expiresAt, err := time.Parse(time.RFC3339, cache.ExpiresAt)
	if err == nil && time.Now().After(expiresAt) {
		return Credentials{}, authProfileErr("run `aws sso login --profile <name>`", nil, "sso access token expired at %s", cache.ExpiresAt)
	}

	url := fmt.Sprintf("https://portal.sso.%s.amazonaws.com/federation/credentials?account_id=%s&role_name=%s",
		sso.Region, sso.AccountID, sso.RoleName)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return Credentials{}, fmt.Errorf("build sso credentials request: %w", err)
	}
	req.Header.Set("x-amz-sso_bearer_token", cache.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("sso credentials request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Credentials{}, authProfileErr("run `aws sso login --profile <name>`", nil, "sso token rejected (%d): %s", resp.StatusCode, body)
	}
	if resp.StatusCode != http.StatusOK {
		return Credentials{}, fmt.Errorf("sso federation endpoint returned %d: %s", resp.StatusCode, body)
	}

	var out struct {
		RoleCredentials struct {
			AccessKeyID     string `json:"accessKeyId"`
			SecretAccessKey string `json:"secretAccessKey"`
			SessionToken    string `json:"sessionToken"`
		} `json:"roleCredentials"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return Credentials{}, fmt.Errorf("parse sso federation response: %w", err)
	}

	return Credentials{
		AccessKeyID:     out.RoleCredentials.AccessKeyID,
		SecretAccessKey: out.RoleCredentials.SecretAccessKey,
		SessionToken:    out.RoleCredentials.SessionToken,
	}, nil
}
