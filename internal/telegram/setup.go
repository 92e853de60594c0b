// Package telegram connects dukhota to the Telegram Bot API: client setup,
// handler registration and conversion of Telegram messages into posts.
package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-telegram/bot"
)

// ErrEmptyToken is returned when no bot token is configured.
var ErrEmptyToken = errors.New("telegram bot token cannot be empty")

// RegisteredHandler is a handler with the pattern it answers to and its
// middleware chain. When Match is set it replaces the pattern match.
type RegisteredHandler struct {
	HandlerType bot.HandlerType
	Pattern     string
	Handler     bot.HandlerFunc
	Middleware  []bot.Middleware
	MatchType   bot.MatchType
	Match       bot.MatchFunc
}

// NewTelegramBot creates a go-telegram/bot client. Channel posts reach the
// default handler, so callers pass it through opts with bot.WithDefaultHandler.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", maskToken(token))
	return b, nil
}

// maskToken keeps the bot id part of a token.
func maskToken(token string) string {
	if id, _, ok := strings.Cut(token, ":"); ok {
		return id + ":..."
	}
	return "..."
}

// applyMiddleware wraps a handler with mw; the first middleware is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RegisterHandlers registers the command handlers in name order.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, registered map[string]RegisteredHandler) error {
	if b == nil {
		return errors.New("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	if len(registered) == 0 {
		log.Warn("No handlers provided for registration.")
		return nil
	}

	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	slices.Sort(names)

	count := 0
	for _, name := range names {
		h := registered[name]
		if h.Handler == nil {
			log.Warn("Skipping registration for nil handler", "name", name)
			continue
		}

		handler := applyMiddleware(h.Handler, h.Middleware)
		if h.Match != nil {
			b.RegisterHandlerMatchFunc(h.Match, handler)
		} else {
			b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, handler)
		}
		log.Debug("Registered handler", "name", name, "pattern", h.Pattern, "middleware_count", len(h.Middleware))
		count++
	}

	log.Info("Registered Telegram handlers", "count", count)
	return nil
}
