package notify

import (
	"fmt"

	mail "github.com/wneessen/go-mail"
)

// sendEmail posts subject/body to a single recipient over the account-wide
// SMTP settings. A trimmed-down sibling of the teacher's workflow email
// node: no per-node template rendering (subject/body already come rendered
// from the engine), no per-config TLS/proxy overrides, just one
// straightforward DialAndSend.
func (s *Sink) sendEmail(to, subject, body string) error {
	if s.cfg.SMTPHost == "" {
		return fmt.Errorf("notify.smtp_host not configured")
	}
	if s.cfg.SMTPFrom == "" {
		return fmt.Errorf("notify.smtp_from not configured")
	}

	m := mail.NewMsg()
	if err := m.From(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithTimeout(requestTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.SMTPUsername != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.SMTPUsername), mail.WithPassword(s.cfg.SMTPPassword))
	}

	c, err := mail.NewClient(s.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	return c.DialAndSend(m)
}
