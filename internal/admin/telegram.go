package admin

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier delivers admin notices through a Telegram bot.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{bot: bot}, nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, admin Identity, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(admin.ID, text)
	_, err := t.bot.Send(msg)
	return err
}

// NoopNotifier swallows notices; used when no bot token is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Identity, string) error { return nil }
