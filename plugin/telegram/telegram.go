// Package telegram implements the legacy/alternate notification backend on
// top of the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const defaultParseMode = "Markdown"

// Config holds configuration for the Telegram notifier.
type Config struct {
	BotToken string
}

// Notifier sends reminder messages through a Telegram bot. It only supports
// immediate sends; deliveries with a future fire time belong in the offline
// queue, which fires them locally at the right moment.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	config *Config
}

// NewNotifier creates a new Telegram notifier.
func NewNotifier(config *Config) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return &Notifier{bot: bot, config: config}, nil
}

// Send posts a message to the given chat. The Bot API client has no context
// support, so the caller's deadline only bounds the wait, not the wire call.
func (n *Notifier) Send(ctx context.Context, chatID int64, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("*%s*\n%s", title, body))
	msg.ParseMode = defaultParseMode
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message to chat %d: %w", chatID, err)
	}
	return nil
}
