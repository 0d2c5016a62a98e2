// Package bot adapts the memory manager to Telegram.
package bot

import (
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramBot is the part of the Telegram API the bot uses.
type TelegramBot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetSelf() tgbotapi.User
}

type tgBotWrapper struct {
	*tgbotapi.BotAPI
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.Self
}

// NewTelegramAPI authorizes token against the Bot API.
func NewTelegramAPI(token string, client *http.Client) (TelegramBot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &tgBotWrapper{BotAPI: api}, nil
}
