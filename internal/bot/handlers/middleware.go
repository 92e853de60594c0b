// Package handlers contains the Telegram update handlers of dukhota, their
// registration and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly lets a command through only when it comes from the configured
// admin. Anyone else gets the not-authorized text and processing stops.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if !isAdmin(deps, update) {
				if update.Message != nil {
					replyNotAuthorized(ctx, deps, bot, update.Message)
				}
				return
			}
			next(ctx, bot, update)
		}
	}
}

func isAdmin(deps HandlerDeps, update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}
	adminID := deps.Config.Telegram.AdminID
	return adminID != 0 && update.Message.From.ID == adminID
}

func replyNotAuthorized(ctx context.Context, deps HandlerDeps, s sender, msg *models.Message) {
	log := deps.Logger.With("middleware", "AdminOnly")

	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", msg.Chat.ID)

	_, err := s.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   deps.Config.Telegram.Messages.NotAuthorized,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", msg.Chat.ID)
	}
}
