package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/dukhota/internal/dedup"
	"github.com/edgard/dukhota/internal/telegram"
)

const observeTimeout = 10 * time.Second

// NewChannelPostHandler returns the default handler. It runs every new post
// of a watched channel through the detector and acts on duplicates.
func NewChannelPostHandler(deps HandlerDeps) bot.HandlerFunc {
	h := channelPostHandler{deps}
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.handle(ctx, b, update)
	}
}

type channelPostHandler struct {
	deps HandlerDeps
}

func (h channelPostHandler) handle(ctx context.Context, s sender, update *models.Update) {
	log := h.deps.Logger.With("handler", "channel_post")

	post := update.ChannelPost
	if post == nil {
		log.DebugContext(ctx, "Ignoring non channel post update", "update_id", update.ID)
		return
	}
	if !h.deps.Config.Telegram.Watches(post.Chat.ID) {
		log.DebugContext(ctx, "Ignoring post from unwatched channel", "chat_id", post.Chat.ID)
		return
	}

	msg, err := telegram.ToMessage(post)
	if err != nil {
		log.WarnContext(ctx, "Cannot build post from update", "chat_id", post.Chat.ID, "message_id", post.ID, "error", err)
		return
	}

	observeCtx, cancel := context.WithTimeout(ctx, observeTimeout)
	defer cancel()

	report, err := h.deps.Detector.Observe(observeCtx, msg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.WarnContext(ctx, "Duplicate check timed out", "chat_id", post.Chat.ID, "message_id", post.ID)
			return
		}
		log.ErrorContext(ctx, "Duplicate check failed", "chat_id", post.Chat.ID, "message_id", post.ID, "error", err)
		return
	}

	if !report.Duplicate() {
		return
	}

	if h.deps.Config.Telegram.DeleteDuplicates {
		err := h.deps.guarded(ctx, func(ctx context.Context) error {
			_, err := s.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: post.Chat.ID, MessageID: post.ID})
			return err
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to delete duplicate post", "chat_id", post.Chat.ID, "message_id", post.ID, "error", err)
		} else {
			log.InfoContext(ctx, "Deleted duplicate post", "chat_id", post.Chat.ID, "message_id", post.ID)
		}
	}

	if h.deps.Config.Telegram.NotifyAdmin {
		h.notifyAdmin(ctx, s, post, report)
	}
}

func (h channelPostHandler) notifyAdmin(ctx context.Context, s sender, post *models.Message, report dedup.Report) {
	text := fmt.Sprintf(h.deps.Config.Telegram.Messages.Duplicate,
		postLink(post.Chat.ID, int64(post.ID)),
		postLink(report.OriginalChannelID, report.OriginalMessageID),
		report.Verdict.Rule)

	err := h.deps.guarded(ctx, func(ctx context.Context) error {
		_, err := s.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: h.deps.Config.Telegram.AdminID,
			Text:   text,
		})
		return err
	})
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to notify admin about duplicate",
			"handler", "channel_post", "admin_id", h.deps.Config.Telegram.AdminID, "error", err)
	}
}

// postLink builds the t.me link of a post in a private or public channel.
func postLink(channelID, messageID int64) string {
	chat, ok := strings.CutPrefix(strconv.FormatInt(channelID, 10), "-100")
	if !ok {
		return fmt.Sprintf("%d/%d", channelID, messageID)
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", chat, messageID)
}

