package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	h := statsHandler{deps}
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.handle(ctx, b, update)
	}
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) handle(ctx context.Context, s sender, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	if update.Message == nil {
		log.WarnContext(ctx, "Stats handler received update without message", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	count, err := h.deps.Store.CountDuplicatesSince(timeoutCtx, time.Now().Add(-24*time.Hour))
	if err != nil {
		log.ErrorContext(ctx, "Failed to count duplicates", "error", err, "chat_id", chatID)
		h.reply(ctx, s, chatID, h.deps.Config.Telegram.Messages.GeneralError)
		return
	}

	inWindow := 0
	if h.deps.Detector != nil {
		inWindow = h.deps.Detector.Window().Len()
	}

	h.reply(ctx, s, chatID, fmt.Sprintf(h.deps.Config.Telegram.Messages.Stats, count, inWindow))
}

func (h statsHandler) reply(ctx context.Context, s sender, chatID int64, text string) {
	if _, err := s.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send stats reply", "handler", "stats", "error", err, "chat_id", chatID)
	}
}
