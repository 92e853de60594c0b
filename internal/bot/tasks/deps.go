// Package tasks implements the scheduled maintenance tasks of dukhota:
// window pruning, registry retention and SQLite maintenance.
package tasks

import (
	"log/slog"

	"github.com/edgard/dukhota/internal/config"
	"github.com/edgard/dukhota/internal/database"
	"github.com/edgard/dukhota/internal/window"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Window *window.Window
	Config *config.Config
}
