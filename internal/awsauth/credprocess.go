package awsauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// credentialProcessTimeout bounds the spawned helper, grounded on the
// teacher's exec node default timeout idiom (internal/service/workflow/nodes/exec.go).
const credentialProcessTimeout = 30 * time.Second

type credentialProcessOutput struct {
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken"`
}

// ResolveCredentialProcess spawns the configured command via the platform
// shell, parses its JSON stdout, and maps a non-zero exit to
// ExternalProcessFailed carrying stderr (spec §4.1.3.c).
func ResolveCredentialProcess(command string) (Credentials, error) {
	ctx, cancel := context.WithTimeout(context.Background(), credentialProcessTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Credentials{}, authProfileErr("check the credential_process command in ~/.aws/config",
			err, "credential_process exited non-zero: %s", strings.TrimSpace(stderr.String()))
	}

	var out credentialProcessOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return Credentials{}, fmt.Errorf("parse credential_process output: %w", err)
	}
	if out.AccessKeyID == "" || out.SecretAccessKey == "" {
		return Credentials{}, fmt.Errorf("credential_process output missing AccessKeyId/SecretAccessKey")
	}

	return Credentials{
		AccessKeyID:     out.AccessKeyID,
		SecretAccessKey: out.SecretAccessKey,
		SessionToken:    out.SessionToken,
	}, nil
}

// ResolveCredentials dispatches a profile to its resolution strategy, per
// spec §4.1.3's "Profile type dispatch". depth is only meaningful for the
// AssumeRole branch (source-profile recursion cap).
func ResolveCredentials(p *Profile, depth int) (Credentials, string, error) {
	switch {
	case p.IsAssumeRole():
		creds, err := ResolveAssumeRole(p.AssumeRole, depth)
		return creds, p.Region, err
	case p.IsSSO():
		creds, err := ResolveSSO(p.SSO)
		return creds, p.SSO.Region, err
	case p.HasStatic():
		return Credentials{AccessKeyID: p.AccessKeyID, SecretAccessKey: p.SecretAccessKey, SessionToken: p.SessionToken}, p.Region, nil
	case p.HasCredentialProcess():
		creds, err := ResolveCredentialProcess(p.CredentialProcess)
		return creds, p.Region, err
	default:
		return Credentials{}, "", fmt.Errorf("profile %q has no resolvable credential source", p.Name)
	}
}
