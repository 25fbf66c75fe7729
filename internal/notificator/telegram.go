package notificator

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	tgModels "github.com/go-telegram/bot/models"

	"github.com/carelink/carewallet/pkg/logger"
)

// TelegramNotificator sends alerts through a Telegram bot. Operators message the
// bot with /chatid to learn the id to configure as the admin chat.
type TelegramNotificator struct {
	logger *logger.Logger
	bot    *bot.Bot
}

func NewTelegramNotificator(ctx context.Context, logger *logger.Logger, token string) (*TelegramNotificator, error) {
	provider := &TelegramNotificator{
		logger: logger.Named("telegram"),
	}
	opts := []bot.Option{
		bot.WithDefaultHandler(provider.handler),
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	go b.Start(ctx)
	provider.bot = b

	return provider, nil
}

func (t *TelegramNotificator) SendNotification(ctx context.Context, chatID, message string) error {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   message,
	}
	if _, err := t.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func (t *TelegramNotificator) handler(ctx context.Context, b *bot.Bot, update *tgModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	t.logger.Debugw("Telegram update", "username", update.Message.From.Username, "text", update.Message.Text)
	if update.Message.Text == "/chatid" || update.Message.Text == "/start" {
		chatID := fmt.Sprint(update.Message.Chat.ID)
		if err := t.SendNotification(ctx, chatID, "This chat id is "+chatID+". Set TELEGRAM_ADMIN_CHAT_ID to it to receive wallet alerts."); err != nil {
			t.logger.Errorw("Failed to answer chat id request", "error", err)
		}
	}
}
