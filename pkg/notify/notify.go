// Package notify delivers story alerts to Telegram chats.
package notify

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	apperrors "storywatch/pkg/errors"
	"storywatch/pkg/logger"
)

// Notifier delivers messages and media to a chat.
type Notifier interface {
	// SendText sends an HTML-formatted text message.
	SendText(ctx context.Context, chatID, text string) error
	// SendPhoto sends image bytes with an HTML caption.
	SendPhoto(ctx context.Context, chatID, caption string, photo []byte) error
	// SendVideo sends video bytes with an HTML caption.
	SendVideo(ctx context.Context, chatID, caption string, video []byte) error
}

// TelegramNotifier sends through the Telegram Bot API.
type TelegramNotifier struct {
	client *tgbot.Bot
	logger logger.Logger
}

// NewTelegramNotifier creates a notifier for the given bot token.
// apiBase overrides the Telegram API base URL when non-empty.
func NewTelegramNotifier(botToken, apiBase string, log logger.Logger) (*TelegramNotifier, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if strings.TrimSpace(botToken) == "" {
		return nil, apperrors.New(apperrors.ErrorTypeValidation, "telegram bot token is required")
	}

	options := []tgbot.Option{
		tgbot.WithSkipGetMe(),
	}
	if apiBase != "" {
		options = append(options, tgbot.WithServerURL(strings.TrimRight(apiBase, "/")))
	}

	client, err := tgbot.New(botToken, options...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeNotify, "init telegram bot", err)
	}
	return &TelegramNotifier{client: client, logger: log}, nil
}

// NewTelegramNotifierFromBot wraps an existing bot client.
func NewTelegramNotifierFromBot(client *tgbot.Bot, log logger.Logger) *TelegramNotifier {
	if log == nil {
		log = logger.GetLogger()
	}
	return &TelegramNotifier{client: client, logger: log}
}

func (n *TelegramNotifier) SendText(ctx context.Context, chatID, text string) error {
	_, err := n.client.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    normalizeChatID(chatID),
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeNotify, "telegram send message", err)
	}

	n.logger.DebugWithFields("telegram message sent", map[string]interface{}{
		"chat_id": chatID,
	})
	return nil
}

func (n *TelegramNotifier) SendPhoto(ctx context.Context, chatID, caption string, photo []byte) error {
	_, err := n.client.SendPhoto(ctx, &tgbot.SendPhotoParams{
		ChatID: normalizeChatID(chatID),
		Photo: &tgmodels.InputFileUpload{
			Filename: "story.jpg",
			Data:     bytes.NewReader(photo),
		},
		Caption:   caption,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeNotify, "telegram send photo", err)
	}

	n.logger.DebugWithFields("telegram photo sent", map[string]interface{}{
		"chat_id": chatID,
		"size":    len(photo),
	})
	return nil
}

func (n *TelegramNotifier) SendVideo(ctx context.Context, chatID, caption string, video []byte) error {
	_, err := n.client.SendVideo(ctx, &tgbot.SendVideoParams{
		ChatID: normalizeChatID(chatID),
		Video: &tgmodels.InputFileUpload{
			Filename: "story.mp4",
			Data:     bytes.NewReader(video),
		},
		Caption:   caption,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeNotify, "telegram send video", err)
	}

	n.logger.DebugWithFields("telegram video sent", map[string]interface{}{
		"chat_id": chatID,
		"size":    len(video),
	})
	return nil
}

// normalizeChatID converts numeric chat ids to int64 and keeps
// non-numeric ids (channel usernames) as strings.
func normalizeChatID(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if numeric, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return numeric
	}
	return trimmed
}
