package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sendTelegram posts subject/body to a chat via the account-wide bot token.
// Grounded on the bot.Send(tgbotapi.NewMessage(...)) pattern used elsewhere
// in the retrieved corpus for one-shot outbound notifications.
func (s *Sink) sendTelegram(chatID, subject, body string) error {
	if s.cfg.TelegramBotToken == "" {
		return fmt.Errorf("notify.telegram_bot_token not configured")
	}

	id, err := parseTelegramChatID(chatID)
	if err != nil {
		return err
	}

	bot, err := tgbotapi.NewBotAPI(s.cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("init bot: %w", err)
	}
	bot.Client = s.client

	msg := tgbotapi.NewMessage(id, fmt.Sprintf("*%s*\n%s", subject, body))
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err = bot.Send(msg)
	return err
}

func parseTelegramChatID(raw string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", raw, err)
	}
	return id, nil
}
