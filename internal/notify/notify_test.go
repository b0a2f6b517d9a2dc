package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicpulse/quicpulse/internal/config"
	"github.com/quicpulse/quicpulse/internal/workflow"
)

func TestNotify_WebhookDeliversSubjectAndBody(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := New(config.Notify{})
	err := sink.Notify(context.Background(), workflow.NotifyTarget{Webhook: srv.URL}, "run finished", "2 steps ok")
	require.NoError(t, err)
	assert.Equal(t, "run finished", got.Subject)
	assert.Equal(t, "2 steps ok", got.Body)
}

func TestNotify_WebhookNonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := New(config.Notify{})
	err := sink.Notify(context.Background(), workflow.NotifyTarget{Webhook: srv.URL}, "subj", "body")
	assert.Error(t, err)
}

func TestNotify_EmailMissingSMTPHostErrors(t *testing.T) {
	sink := New(config.Notify{})
	err := sink.Notify(context.Background(), workflow.NotifyTarget{Email: "ops@example.com"}, "subj", "body")
	assert.Error(t, err)
}

func TestNotify_TelegramMissingBotTokenErrors(t *testing.T) {
	sink := New(config.Notify{})
	err := sink.Notify(context.Background(), workflow.NotifyTarget{Telegram: "123456"}, "subj", "body")
	assert.Error(t, err)
}

func TestParseDiscordWebhook_ExtractsIDAndToken(t *testing.T) {
	id, token, err := parseDiscordWebhook("https://discord.com/api/webhooks/12345/abcDEF")
	require.NoError(t, err)
	assert.Equal(t, "12345", id)
	assert.Equal(t, "abcDEF", token)
}

func TestParseDiscordWebhook_RejectsNonWebhookURL(t *testing.T) {
	_, _, err := parseDiscordWebhook("https://example.com/hook")
	assert.Error(t, err)
}

func TestParseTelegramChatID_RejectsNonNumeric(t *testing.T) {
	_, err := parseTelegramChatID("not-a-number")
	assert.Error(t, err)
}
