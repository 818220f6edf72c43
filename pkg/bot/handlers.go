// Package bot implements the Telegram command surface: subscription
// management and on-demand story downloads.
package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"storywatch/pkg/capture"
	"storywatch/pkg/instagram"
	"storywatch/pkg/logger"
	"storywatch/pkg/notify"
	"storywatch/pkg/store"
)

// usernamePattern matches valid Instagram usernames after
// normalization.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)

// Handlers implements the bot commands against the subscription store
// and capturer.
type Handlers struct {
	subscriptions *store.Subscriptions
	capturer      capture.Capturer
	notifier      notify.Notifier
	logger        logger.Logger
}

// NewHandlers wires the command handlers.
func NewHandlers(subs *store.Subscriptions, capturer capture.Capturer, notifier notify.Notifier, log logger.Logger) *Handlers {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Handlers{
		subscriptions: subs,
		capturer:      capturer,
		notifier:      notifier,
		logger:        log,
	}
}

// normalizeUsername lowercases and strips decoration from a command
// argument. Returns empty when the result is not a valid username.
func normalizeUsername(raw string) string {
	username := strings.ToLower(store.NormalizeAccount(raw))
	if !usernamePattern.MatchString(username) {
		return ""
	}
	return username
}

// Start handles /start and /help.
func (h *Handlers) Start(ctx context.Context, chatID string) error {
	text := "👋 <b>Welcome to the story monitor!</b>\n\n" +
		"I watch Instagram accounts and alert you when they post new stories.\n\n" +
		"🔍 /track &lt;username&gt; — start tracking an account\n" +
		"🚫 /untrack &lt;username&gt; — stop tracking an account\n" +
		"📋 /list — show your tracked accounts\n" +
		"📥 /download &lt;username&gt; — fetch the current story right now\n" +
		"❓ /help — show this message again"
	return h.notifier.SendText(ctx, chatID, text)
}

// Track handles /track <username>.
func (h *Handlers) Track(ctx context.Context, chatID string, args []string) error {
	if len(args) == 0 {
		return h.notifier.SendText(ctx, chatID,
			"❌ Please provide an Instagram username to track.\nExample: /track instagram")
	}

	username := normalizeUsername(args[0])
	if username == "" {
		return h.notifier.SendText(ctx, chatID,
			"❌ Invalid Instagram username.\nUsernames can only contain letters, numbers, periods, and underscores.")
	}

	added, err := h.subscriptions.Add(chatID, username)
	if err != nil {
		h.logger.WithError(err).Error("failed to add subscription")
		return h.notifier.SendText(ctx, chatID,
			"❌ Something went wrong saving your subscription. Please try again.")
	}

	if !added {
		return h.notifier.SendText(ctx, chatID,
			fmt.Sprintf("ℹ️ You're already tracking @%s.", username))
	}
	return h.notifier.SendText(ctx, chatID,
		fmt.Sprintf("✅ Now tracking @%s!\nYou'll be notified when they post new stories.", username))
}

// Untrack handles /untrack <username>.
func (h *Handlers) Untrack(ctx context.Context, chatID string, args []string) error {
	if len(args) == 0 {
		return h.notifier.SendText(ctx, chatID,
			"❌ Please provide an Instagram username to stop tracking.\nExample: /untrack instagram")
	}

	username := normalizeUsername(args[0])
	if username == "" {
		return h.notifier.SendText(ctx, chatID,
			"❌ Invalid Instagram username.\nUsernames can only contain letters, numbers, periods, and underscores.")
	}

	removed, err := h.subscriptions.Remove(chatID, username)
	if err != nil {
		h.logger.WithError(err).Error("failed to remove subscription")
		return h.notifier.SendText(ctx, chatID,
			"❌ Something went wrong updating your subscriptions. Please try again.")
	}

	if !removed {
		return h.notifier.SendText(ctx, chatID,
			fmt.Sprintf("ℹ️ You weren't tracking @%s.", username))
	}
	return h.notifier.SendText(ctx, chatID,
		fmt.Sprintf("✅ Stopped tracking @%s.", username))
}

// List handles /list.
func (h *Handlers) List(ctx context.Context, chatID string) error {
	accounts, err := h.subscriptions.Accounts(chatID)
	if err != nil {
		h.logger.WithError(err).Error("failed to load subscriptions")
		return h.notifier.SendText(ctx, chatID,
			"❌ Something went wrong reading your subscriptions. Please try again.")
	}

	if len(accounts) == 0 {
		return h.notifier.SendText(ctx, chatID,
			"ℹ️ You're not tracking any Instagram accounts yet.\nUse /track &lt;username&gt; to start.")
	}

	var b strings.Builder
	b.WriteString("📋 <b>You're tracking these accounts:</b>\n\n")
	for _, account := range accounts {
		fmt.Fprintf(&b, "• @%s\n", account)
	}
	return h.notifier.SendText(ctx, chatID, b.String())
}

// Download handles /download <username>: a one-shot capture and send
// that never touches the alert history.
func (h *Handlers) Download(ctx context.Context, chatID string, args []string) error {
	if len(args) == 0 {
		return h.notifier.SendText(ctx, chatID,
			"❌ Please provide an Instagram username to download from.\nExample: /download instagram")
	}

	username := normalizeUsername(args[0])
	if username == "" {
		return h.notifier.SendText(ctx, chatID,
			"❌ Invalid Instagram username.\nUsernames can only contain letters, numbers, periods, and underscores.")
	}

	if err := h.notifier.SendText(ctx, chatID,
		fmt.Sprintf("🔄 Checking stories for @%s...", username)); err != nil {
		return err
	}

	item, err := h.capturer.Capture(ctx, username)
	if capture.IsNoStory(err) {
		return h.notifier.SendText(ctx, chatID,
			fmt.Sprintf("😴 No active stories found for @%s. Try again later.", username))
	}
	if err != nil {
		h.logger.ErrorWithFields("download capture failed", map[string]interface{}{
			"account": username,
			"error":   err.Error(),
		})
		return h.notifier.SendText(ctx, chatID,
			fmt.Sprintf("❌ Could not fetch the story for @%s. Please try again later.", username))
	}

	if len(item.MediaBytes) == 0 {
		return h.notifier.SendText(ctx, chatID,
			fmt.Sprintf("❌ Could not download the story media for @%s.\n%s",
				username, instagram.StoryURL(username)))
	}

	caption := fmt.Sprintf("🖼️ Story from @%s", username)
	if item.Kind == capture.KindVideo {
		caption = fmt.Sprintf("🎥 Story from @%s", username)
		return h.notifier.SendVideo(ctx, chatID, caption, item.MediaBytes)
	}
	return h.notifier.SendPhoto(ctx, chatID, caption, item.MediaBytes)
}
