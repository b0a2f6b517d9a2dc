package auth

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/quicpulse/quicpulse/internal/model"
)

// cliTimeout bounds the gcloud/az subprocess, grounded on the teacher's
// exec node (internal/service/workflow/nodes/exec.go) defaultExecTimeout.
const cliTimeout = 30 * time.Second

// runCLI spawns name with args directly (no shell) and returns trimmed
// stdout, mapping a non-zero exit or spawn failure to
// model.KindAuth/ExternalProcessFailed with the captured stderr, the same
// idiom exec.go uses for credential-process commands.
func runCLI(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, cliTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", authErr(model.KindAuth,
			"run `"+name+" "+strings.Join(args, " ")+"` manually to see the underlying error",
			err, "external process failed: %s", strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// GCP shells out to `gcloud auth print-access-token` (or, when Audience is
// set, `print-identity-token --audiences=<aud>`), per spec §4.1.1.
type GCP struct {
	Audience string
}

func (g GCP) Apply(ctx context.Context, req *Request) error {
	var (
		token string
		err   error
	)
	if g.Audience != "" {
		token, err = runCLI(ctx, "gcloud", "auth", "print-identity-token", "--audiences="+g.Audience)
	} else {
		token, err = runCLI(ctx, "gcloud", "auth", "print-access-token")
	}
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Azure shells out to `az account get-access-token --resource <resource>`,
// defaulting resource to https://management.azure.com/ per spec §4.1.1.
type Azure struct {
	Resource string
}

func (a Azure) Apply(ctx context.Context, req *Request) error {
	resource := a.Resource
	if resource == "" {
		resource = "https://management.azure.com/"
	}

	out, err := runCLI(ctx, "az", "account", "get-access-token", "--resource", resource, "--query", "accessToken", "--output", "tsv")
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+out)
	return nil
}
