package auth

import (
	"context"

	"github.com/quicpulse/quicpulse/internal/model"
)

// NetAuth advertises NTLM/Negotiate/Kerberos as recognized --auth-type
// values without performing a native handshake (spec §4.1.1: "capability-
// advertising only; no native handshake is specified here"). Apply always
// fails with a clear remediation hint rather than silently sending an
// unauthenticated request.
type NetAuth struct {
	Scheme Type
}

func (n NetAuth) Apply(_ context.Context, _ *Request) error {
	return authErr(model.KindAuth,
		"this build advertises "+string(n.Scheme)+" as a recognized --auth-type but does not perform the handshake; use a provider-specific bearer/basic credential instead",
		nil, "%s authentication is not implemented", n.Scheme)
}
