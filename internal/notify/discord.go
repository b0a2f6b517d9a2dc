package notify

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// sendDiscord posts subject/body to a Discord incoming webhook. No bot token
// or gateway session is needed for a webhook post, so the discordgo.Session
// here is created unauthenticated purely to reuse its WebhookExecute
// request/response plumbing and rate-limit handling.
func (s *Sink) sendDiscord(webhookURL, subject, body string) error {
	id, token, err := parseDiscordWebhook(webhookURL)
	if err != nil {
		return err
	}

	session, err := discordgo.New("")
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	session.Client = s.client

	_, err = session.WebhookExecute(id, token, false, &discordgo.WebhookParams{
		Content: fmt.Sprintf("**%s**\n%s", subject, body),
	})
	return err
}

// parseDiscordWebhook extracts the {id}/{token} pair from a webhook URL of
// the form https://discord.com/api/webhooks/<id>/<token>.
func parseDiscordWebhook(webhookURL string) (id, token string, err error) {
	trimmed := strings.TrimSuffix(webhookURL, "/")
	idx := strings.Index(trimmed, "/webhooks/")
	if idx == -1 {
		return "", "", fmt.Errorf("not a discord webhook url: %s", webhookURL)
	}
	parts := strings.Split(trimmed[idx+len("/webhooks/"):], "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed discord webhook url: %s", webhookURL)
	}
	return parts[0], parts[1], nil
}
