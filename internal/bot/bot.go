// Package bot wires the Telegram listener and the maintenance scheduler of
// dukhota together and manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"
)

// ErrListenerStopped is returned when the Telegram listener exits while
// the bot is still supposed to run.
var ErrListenerStopped = errors.New("telegram listener stopped unexpectedly")

// listener is the long-polling part of *tgbot.Bot.
type listener interface {
	Start(ctx context.Context)
}

var _ listener = (*tgbot.Bot)(nil)

// scheduler is the lifecycle of *Scheduler.
type scheduler interface {
	Start() error
	Stop() error
}

// Bot runs the components of the service until the context is cancelled.
type Bot struct {
	logger    *slog.Logger
	tg        listener
	scheduler scheduler
}

// NewBot creates a Bot from a Telegram client and a scheduler.
func NewBot(logger *slog.Logger, tg *tgbot.Bot, scheduler *Scheduler) *Bot {
	return newBot(logger, tg, scheduler)
}

func newBot(logger *slog.Logger, tg listener, s scheduler) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		tg:        tg,
		scheduler: s,
	}
}

// Run starts the Telegram listener and the scheduler and blocks until ctx
// is cancelled or one of them fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")
		b.tg.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped without context cancellation.")
			return ErrListenerStopped
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
