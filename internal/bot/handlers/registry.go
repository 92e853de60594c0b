package handlers

import (
	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/dukhota/internal/telegram"
)

// RegisterAllCommands returns the command handlers keyed by command.
// Channel posts are not commands; they go to NewChannelPostHandler, which
// is installed as the default handler.
func RegisterAllCommands(deps HandlerDeps) map[string]telegram.RegisteredHandler {
	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}

	return map[string]telegram.RegisteredHandler{
		"/stats": {
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     "stats",
			Handler:     NewStatsHandler(deps),
			Match:       telegram.CommandMatch("stats", deps.BotUsername),
			Middleware:  adminMiddleware,
		},
	}
}
