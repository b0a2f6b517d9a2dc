// Package notify implements workflow.Notifier (SUPPLEMENT feature, spec §3):
// delivering a post-run subject/body pair to whichever sinks a workflow's
// `notify:` targets name. Each sink is grounded on a dependency the teacher
// already carries in go.mod for agent-facing notifications (bwmarrin/
// discordgo, go-telegram-bot-api/v5, wneessen/go-mail) but never wired to
// its own code; QuicPulse repurposes them for CI-style run alerts.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/quicpulse/quicpulse/internal/config"
	"github.com/quicpulse/quicpulse/internal/workflow"
)

// Sink is the account-wide workflow.Notifier: one instance serves every
// workflow's notify targets, using credentials from the [notify] config
// table plus the per-target destination (webhook URL, chat ID, address).
type Sink struct {
	cfg    config.Notify
	client *http.Client
}

const requestTimeout = 15 * time.Second

// New builds a Sink from the loaded [notify] configuration table.
func New(cfg config.Notify) *Sink {
	return &Sink{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
	}
}

var _ workflow.Notifier = (*Sink)(nil)

// Notify delivers subject/body to every non-empty destination field set on
// target. A target may name more than one sink; all named sinks fire.
func (s *Sink) Notify(ctx context.Context, target workflow.NotifyTarget, subject, body string) error {
	var errs []error

	if target.Discord != "" {
		if err := s.sendDiscord(target.Discord, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("discord: %w", err))
		}
	}
	if target.Telegram != "" {
		if err := s.sendTelegram(target.Telegram, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("telegram: %w", err))
		}
	}
	if target.Email != "" {
		if err := s.sendEmail(target.Email, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}
	if target.Webhook != "" {
		if err := s.sendWebhook(ctx, target.Webhook, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("webhook: %w", err))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("notify: %v", errs)
}
