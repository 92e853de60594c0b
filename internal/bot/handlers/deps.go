package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/dukhota/internal/config"
	"github.com/edgard/dukhota/internal/database"
	"github.com/edgard/dukhota/internal/dedup"
	"github.com/edgard/dukhota/internal/resilience"
)

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Detector *dedup.Detector
	// Guard wraps the actions taken on duplicates. Nil calls the API directly.
	Guard *resilience.Guard
	// BotUsername is the bot's own username, used to match /command@username.
	BotUsername string
}

func (d HandlerDeps) guarded(ctx context.Context, op func(context.Context) error) error {
	if d.Guard == nil {
		return op(ctx)
	}
	return d.Guard.Do(ctx, op)
}

// sender is the part of the Bot API the handlers call. *bot.Bot satisfies it.
type sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}
