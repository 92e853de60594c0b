package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/dukhota/internal/bot"
	"github.com/edgard/dukhota/internal/bot/handlers"
	"github.com/edgard/dukhota/internal/bot/tasks"
	"github.com/edgard/dukhota/internal/config"
	"github.com/edgard/dukhota/internal/database"
	"github.com/edgard/dukhota/internal/dedup"
	"github.com/edgard/dukhota/internal/logger"
	"github.com/edgard/dukhota/internal/message"
	"github.com/edgard/dukhota/internal/resilience"
	"github.com/edgard/dukhota/internal/telegram"
	"github.com/edgard/dukhota/internal/window"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot",
		Long: `Run the bot: listen for channel posts, detect duplicates and
run the maintenance tasks until interrupted.

Configuration comes from the YAML file given with --config (./config.yaml
when present) and DUKHOTA_* environment variables, e.g.
DUKHOTA_TELEGRAM_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	return cmd
}

// runBot wires every component, runs the bot until ctx is cancelled and
// closes the database on the way out.
func runBot(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return err
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path, log)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db, log)
	store := database.NewStore(db, log)

	matcher := message.NewMatcher(
		message.WithThresholds(cfg.Matcher.Thresholds()),
		message.WithObserver(message.NewLogObserver(log)),
	)
	win := window.New(cfg.Window.Size, cfg.Window.TTL, cfg.Window.Concurrency, matcher)
	detector := dedup.NewDetector(store, win, log)

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Detector: detector,
		Guard:    resilience.New(resilience.DefaultConfig("telegram_actions"), log),
	}
	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Window: win,
		Config: cfg,
	}

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log,
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewChannelPostHandler(hDeps)),
	)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return err
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Warn("Failed to fetch bot identity, commands accept any @username", "error", err)
	} else {
		hDeps.BotUsername = me.Username
	}

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return err
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	log.Info("Starting bot...",
		"window_size", cfg.Window.Size,
		"window_ttl", cfg.Window.TTL,
		"delete_duplicates", cfg.Telegram.DeleteDuplicates,
		"notify_admin", cfg.Telegram.NotifyAdmin)

	runErr := bot.NewBot(log, tg, sched).Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return fmt.Errorf("bot stopped: %w", runErr)
	}

	log.Info("Bot stopped gracefully.")
	// Allow logs to flush before exiting
	time.Sleep(100 * time.Millisecond)
	return nil
}
