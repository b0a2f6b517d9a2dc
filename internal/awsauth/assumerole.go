package awsauth

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// maxAssumeRoleDepth caps source-profile recursion (the source profile may
// itself be SSO-resolved) to avoid cycles, per spec §4.1.3.a.
const maxAssumeRoleDepth = 2

type stsAssumeRoleResponse struct {
	XMLName xml.Name `xml:"AssumeRoleResponse"`
	Result  struct {
		Credentials struct {
			AccessKeyID     string `xml:"AccessKeyId"`
			SecretAccessKey string `xml:"SecretAccessKey"`
			SessionToken    string `xml:"SessionToken"`
			Expiration      string `xml:"Expiration"`
		} `xml:"Credentials"`
	} `xml:"AssumeRoleResult"`
}

// ResolveAssumeRole recursively resolves the source profile's credentials,
// then calls STS AssumeRole via a SigV4-signed GET (spec §4.1.3.a).
func ResolveAssumeRole(ar *AssumeRoleBlock, depth int) (Credentials, error) {
	if depth > maxAssumeRoleDepth {
		return Credentials{}, fmt.Errorf("assume-role recursion exceeded depth %d (source-profile cycle?)", maxAssumeRoleDepth)
	}

	source, err := LoadProfile(ar.SourceProfile)
	if err != nil {
		return Credentials{}, fmt.Errorf("load source profile %q: %w", ar.SourceProfile, err)
	}

	sourceCreds, region, err := ResolveCredentials(source, depth+1)
	if err != nil {
		return Credentials{}, fmt.Errorf("resolve source profile %q: %w", ar.SourceProfile, err)
	}
	if region == "" {
		region = source.Region
	}
	if region == "" {
		region = "us-east-1"
	}

	sessionName := ar.RoleSessionName
	if sessionName == "" {
		sessionName = fmt.Sprintf("quicpulse-%d", os.Getpid())
	}
	duration := ar.DurationSeconds
	if duration == 0 {
		duration = 3600
	}

	q := url.Values{
		"Action":          {"AssumeRole"},
		"Version":         {"2011-06-15"},
		"RoleArn":         {ar.RoleARN},
		"RoleSessionName": {sessionName},
		"DurationSeconds": {strconv.Itoa(duration)},
	}
	if ar.ExternalID != "" {
		q.Set("ExternalId", ar.ExternalID)
	}

	endpoint := fmt.Sprintf("https://sts.%s.amazonaws.com/?%s", region, q.Encode())

	signer := &Signer{Creds: sourceCreds, Region: region, Service: "sts"}
	sig, err := signer.Sign(SignInput{
		Method: http.MethodGet,
		URL:    endpoint,
		Header: map[string][]string{"host": {fmt.Sprintf("sts.%s.amazonaws.com", region)}},
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("sign sts request: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return Credentials{}, fmt.Errorf("build sts request: %w", err)
	}
	req.Header.Set("x-amz-date", sig.AmzDate)
	req.Header.Set("x-amz-content-sha256", sig.ContentSHA256)
	req.Header.Set("Authorization", sig.Authorization)
	if sourceCreds.SessionToken != "" {
		req.Header.Set("x-amz-security-token", sourceCreds.SessionToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("sts request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return Credentials{}, fmt.Errorf("sts returned %d: %s", resp.StatusCode, body)
	}

	var parsed stsAssumeRoleResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return Credentials{}, fmt.Errorf("parse sts response: %w", err)
	}

	creds := parsed.Result.Credentials
	if creds.AccessKeyID == "" {
		return Credentials{}, fmt.Errorf("sts response missing credentials")
	}

	if _, err := time.Parse(time.RFC3339, creds.Expiration); err != nil {
		return Credentials{}, fmt.Errorf("parse sts expiration: %w", err)
	}

	return Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
	}, nil
}
