package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Middleware creates a logging middleware for the Telegram bot.
// It logs every update with its type, chat and message ids, and how long
// the handler chain took.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()

			logEntry := log.With("update_id", update.ID)

			updateType, msg := classify(update)
			logEntry = logEntry.With("update_type", updateType)
			if msg != nil {
				logEntry = logEntry.With(
					"chat_id", msg.Chat.ID,
					"message_id", msg.ID,
					"text_preview", truncateString(firstNonEmpty(msg.Text, msg.Caption), 50),
				)
			}

			logEntry.DebugContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.DebugContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

func classify(update *models.Update) (string, *models.Message) {
	switch {
	case update.ChannelPost != nil:
		return "channel_post", update.ChannelPost
	case update.EditedChannelPost != nil:
		return "edited_channel_post", update.EditedChannelPost
	case update.Message != nil:
		return "message", update.Message
	case update.EditedMessage != nil:
		return "edited_message", update.EditedMessage
	default:
		return "other", nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}
