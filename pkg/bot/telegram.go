package bot

import (
	"context"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	apperrors "storywatch/pkg/errors"
	"storywatch/pkg/logger"
)

// Bot polls Telegram for commands and routes them to the handlers.
type Bot struct {
	client   *tgbot.Bot
	handlers *Handlers
	logger   logger.Logger
}

// New builds the Telegram bot and registers the command routes.
// apiBase overrides the Telegram API base URL when non-empty.
// handlers may be nil at construction and attached later with
// SetHandlers, so the notifier can share this bot's connection.
func New(token, apiBase string, handlers *Handlers, log logger.Logger) (*Bot, error) {
	if token == "" {
		return nil, apperrors.New(apperrors.ErrorTypeValidation, "telegram bot token is required")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	opts := []tgbot.Option{
		tgbot.WithSkipGetMe(),
	}
	if apiBase != "" {
		opts = append(opts, tgbot.WithServerURL(strings.TrimRight(apiBase, "/")))
	}

	client, err := tgbot.New(token, opts...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeNotify, "failed to create telegram bot", err)
	}

	b := &Bot{
		client:   client,
		handlers: handlers,
		logger:   log,
	}
	b.registerRoutes()
	return b, nil
}

// Client exposes the underlying Telegram client so the notifier can
// share a single connection with the command loop.
func (b *Bot) Client() *tgbot.Bot {
	return b.client
}

// SetHandlers attaches the command handlers. Must be called before
// Start when New was given nil handlers.
func (b *Bot) SetHandlers(handlers *Handlers) {
	b.handlers = handlers
}

// Start runs the long-polling loop until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("telegram bot started")
	b.client.Start(ctx)
	b.logger.Info("telegram bot stopped")
}

func (b *Bot) registerRoutes() {
	b.route("/start", func(ctx context.Context, chatID string, _ []string) error {
		return b.handlers.Start(ctx, chatID)
	})
	b.route("/help", func(ctx context.Context, chatID string, _ []string) error {
		return b.handlers.Start(ctx, chatID)
	})
	b.route("/track", func(ctx context.Context, chatID string, args []string) error {
		return b.handlers.Track(ctx, chatID, args)
	})
	b.route("/untrack", func(ctx context.Context, chatID string, args []string) error {
		return b.handlers.Untrack(ctx, chatID, args)
	})
	b.route("/list", func(ctx context.Context, chatID string, _ []string) error {
		return b.handlers.List(ctx, chatID)
	})
	b.route("/download", func(ctx context.Context, chatID string, args []string) error {
		return b.handlers.Download(ctx, chatID, args)
	})
}

// route registers one command, stripping the command word and bot
// mention before passing the remaining arguments along.
func (b *Bot) route(command string, handler func(ctx context.Context, chatID string, args []string) error) {
	b.client.RegisterHandler(tgbot.HandlerTypeMessageText, command, tgbot.MatchTypePrefix,
		func(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
			if update.Message == nil || b.handlers == nil {
				return
			}
			chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
			args := commandArgs(update.Message.Text)
			if err := handler(ctx, chatID, args); err != nil {
				b.logger.ErrorWithFields("command handler failed", map[string]interface{}{
					"command": command,
					"chat_id": chatID,
					"error":   err.Error(),
				})
			}
		})
}

// commandArgs splits a message into its arguments, dropping the
// leading "/command" or "/command@botname" token.
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}
