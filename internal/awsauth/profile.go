// Package awsauth implements the AWS SigV4 provider: credential resolution
// (explicit flag, profile, env), profile file parsing, SSO/AssumeRole/
// credential-process dispatch, and the canonical-request signer itself
// (spec §4.1.3). No SDK is vendored — see DESIGN.md for why.
package awsauth

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Profile mirrors spec §3.2's AwsProfile: static credentials, an SSO block,
// an AssumeRole block, or a credential_process, classified by predicate.
type Profile struct {
	Name string

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string

	SSO *SSOBlock

	AssumeRole *AssumeRoleBlock

	CredentialProcess string
}

type SSOBlock struct {
	StartURL  string
	Region    string
	AccountID string
	RoleName  string
	Session   string
}

type AssumeRoleBlock struct {
	RoleARN         string
	SourceProfile   string
	ExternalID      string
	RoleSessionName string
	DurationSeconds int
}

func (p *Profile) HasStatic() bool {
	return p.AccessKeyID != "" && p.SecretAccessKey != ""
}

func (p *Profile) IsSSO() bool {
	return p.SSO != nil && p.SSO.StartURL != ""
}

func (p *Profile) IsAssumeRole() bool {
	return p.AssumeRole != nil && p.AssumeRole.RoleARN != ""
}

func (p *Profile) HasCredentialProcess() bool {
	return p.CredentialProcess != ""
}

// Valid reports whether at least one classification predicate holds, per
// spec §3.2.
func (p *Profile) Valid() bool {
	return p.HasStatic() || p.IsSSO() || p.IsAssumeRole() || p.HasCredentialProcess()
}

// iniSection is a single [section] block's key/value pairs, order-preserving
// only insofar as map iteration isn't required here — profile fields are
// looked up by key, not enumerated.
type iniSection map[string]string

// parseINI is a minimal AWS-credentials/config-file reader: '[section]'
// headers, 'key = value' pairs, '#' and ';' full-line comments. AWS profile
// files are flat and don't need quoting, continuation lines, or nested
// sections, so a dependency-free scanner is enough (see DESIGN.md).
func parseINI(path string) (map[string]iniSection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sections := make(map[string]iniSection)
	current := "default"
	sections[current] = iniSection{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			name := strings.TrimSpace(line[1 : len(line)-1])
			current = strings.TrimPrefix(name, "profile ")
			if _, ok := sections[current]; !ok {
				sections[current] = iniSection{}
			}
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		sections[current][strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}

// CredentialsFilePath resolves ~/.aws/credentials, honoring
// AWS_SHARED_CREDENTIALS_FILE.
func CredentialsFilePath() string {
	if p := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".aws", "credentials")
}

// ConfigFilePath resolves ~/.aws/config, honoring AWS_CONFIG_FILE.
func ConfigFilePath() string {
	if p := os.Getenv("AWS_CONFIG_FILE"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".aws", "config")
}

// LoadProfile resolves a named profile by layering the config file over the
// credentials file, per spec §4.1.3: "Profile merge order: credentials
// file, then config file layered on top for fields the credentials file did
// not set; config-file credentials fill only absent credential-file fields."
func LoadProfile(name string) (*Profile, error) {
	if name == "" {
		name = "default"
	}

	p := &Profile{Name: name}

	if creds, err := parseINI(CredentialsFilePath()); err == nil {
		if sec, ok := creds[name]; ok {
			applyCredentialSection(p, sec)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	if cfg, err := parseINI(ConfigFilePath()); err == nil {
		if sec, ok := cfg[name]; ok {
			applyConfigSection(p, sec)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if !p.Valid() {
		return nil, fmt.Errorf("profile %q has no usable credentials (no static keys, sso, assume_role, or credential_process)", name)
	}

	return p, nil
}

func applyCredentialSection(p *Profile, sec iniSection) {
	setIfAbsent(&p.AccessKeyID, sec["aws_access_key_id"])
	setIfAbsent(&p.SecretAccessKey, sec["aws_secret_access_key"])
	setIfAbsent(&p.SessionToken, sec["aws_session_token"])
	setIfAbsent(&p.Region, sec["region"])
	if cp := sec["credential_process"]; cp != "" {
		p.CredentialProcess = cp
	}
}

func applyConfigSection(p *Profile, sec iniSection) {
	// Config-file credentials fill only absent credential-file fields.
	setIfAbsent(&p.AccessKeyID, sec["aws_access_key_id"])
	setIfAbsent(&p.SecretAccessKey, sec["aws_secret_access_key"])
	setIfAbsent(&p.SessionToken, sec["aws_session_token"])
	setIfAbsent(&p.Region, sec["region"])
	if p.CredentialProcess == "" {
		p.CredentialProcess = sec["credential_process"]
	}

	if sec["sso_start_url"] != "" {
		p.SSO = &SSOBlock{
			StartURL:  sec["sso_start_url"],
			Region:    sec["sso_region"],
			AccountID: sec["sso_account_id"],
			RoleName:  sec["sso_role_name"],
			Session:   sec["sso_session"],
		}
	}

	if sec["role_arn"] != "" {
		dur, _ := strconv.Atoi(sec["duration_seconds"])
		p.AssumeRole = &AssumeRoleBlock{
			RoleARN:         sec["role_arn"],
			SourceProfile:   sec["source_profile"],
			ExternalID:      sec["external_id"],
			RoleSessionName: sec["role_session_name"],
			DurationSeconds: dur,
		}
	}
}

func setIfAbsent(dst *string, val string) {
	if *dst == "" && val != "" {
		*dst = val
	}
}
