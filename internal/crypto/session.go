package crypto

import (
	"fmt"

	"github.com/quicpulse/quicpulse/internal/session"
)

// EncryptSession encrypts a session's sensitive fields (auth header value,
// cookie values) in-place and returns the modified session. If key is nil,
// the session is returned unchanged (no-op) — this is the
// internal/config.Security.EncryptionKey path repurposed from the teacher's
// provider-config encryption to session-file-at-rest encryption.
func EncryptSession(s *session.Session, key []byte) error {
	if key == nil {
		return nil
	}

	if s.Auth != "" {
		enc, err := Encrypt(s.Auth, key)
		if err != nil {
			return fmt.Errorf("encrypt session auth: %w", err)
		}
		s.Auth = enc
	}

	for i, c := range s.Cookies {
		enc, err := Encrypt(c.Value, key)
		if err != nil {
			return fmt.Errorf("encrypt cookie %q: %w", c.Name, err)
		}
		s.Cookies[i].Value = enc
	}

	return nil
}

// DecryptSession reverses EncryptSession. Values without the "enc:" prefix
// pass through unchanged, so a session file written before encryption was
// enabled still loads correctly.
func DecryptSession(s *session.Session, key []byte) error {
	if key == nil {
		return nil
	}

	if s.Auth != "" {
		dec, err := Decrypt(s.Auth, key)
		if err != nil {
			return fmt.Errorf("decrypt session auth: %w", err)
		}
		s.Auth = dec
	}

	for i, c := range s.Cookies {
		dec, err := Decrypt(c.Value, key)
		if err != nil {
			return fmt.Errorf("decrypt cookie %q: %w", c.Name, err)
		}
		s.Cookies[i].Value = dec
	}

	return nil
}
