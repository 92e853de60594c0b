package telegram

import (
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// CommandMatch matches messages starting with /command, with or without
// the @username suffix Telegram adds in group chats. A suffix naming another
// bot does not match. With an empty username any suffix is accepted.
func CommandMatch(command, username string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update == nil || update.Message == nil {
			return false
		}
		name, target, ok := parseCommand(update.Message.Text)
		if !ok || !strings.EqualFold(name, command) {
			return false
		}
		return target == "" || username == "" || strings.EqualFold(target, username)
	}
}

// parseCommand splits "/name@target args" into name and target.
func parseCommand(text string) (name, target string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", "", false
	}
	head, found := strings.CutPrefix(fields[0], "/")
	if !found || head == "" {
		return "", "", false
	}
	name, target, _ = strings.Cut(head, "@")
	return name, target, name != ""
}
