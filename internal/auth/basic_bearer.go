package auth

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/quicpulse/quicpulse/internal/model"
)

// Basic derives "Authorization: Basic base64(user:pass)" from a "user:pass"
// string. A ":"-less input is treated as a username with an empty password
// (spec §4.1.1).
type Basic struct {
	UserPass string
}

func (b Basic) Apply(_ context.Context, req *Request) error {
	if b.UserPass == "" {
		return authErr(model.KindAuth, "pass --auth user:pass for basic authentication", nil, "missing credential for basic auth")
	}

	user, pass, found := strings.Cut(b.UserPass, ":")
	if !found {
		user, pass = b.UserPass, ""
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
	req.Header.Set("Authorization", "Basic "+encoded)
	return nil
}

// Bearer sets "Authorization: Bearer <token>" verbatim.
type Bearer struct {
	Token string
}

func (b Bearer) Apply(_ context.Context, req *Request) error {
	if b.Token == "" {
		return authErr(model.KindAuth, "pass --auth TOKEN for bearer authentication", nil, "missing bearer token")
	}
	req.Header.Set("Authorization", "Bearer "+b.Token)
	return nil
}
