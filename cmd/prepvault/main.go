// PrepVault: a Telegram bot for organizing and delivering UPSC study
// content. Subjects and lectures for browsing, book shelves, and a
// conversational admin surface for content authoring.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/prepvault/prepvault/internal/config"
	"github.com/prepvault/prepvault/internal/router"
	"github.com/prepvault/prepvault/internal/session"
	"github.com/prepvault/prepvault/internal/telegram"
	"github.com/prepvault/prepvault/internal/vault"
)

const maxRetries = 5

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("bot stopped", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := vault.Open(vault.Config{
		Path:         cfg.DatabasePath,
		SeedSubjects: config.DefaultSubjects,
		BusyTimeout:  cfg.DBBusyTimeout,
	}, log.Named("vault"))
	if err != nil {
		return err
	}
	defer store.Close()

	sessions := session.NewStore()
	r := router.New(store, sessions, cfg.Welcome, log.Named("router"))

	// Graceful shutdown on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Transport failures get a bounded reconnect loop; anything that
	// survives maxRetries attempts is fatal.
	for attempt := 1; ; attempt++ {
		bot, err := telegram.New(cfg.BotToken, cfg.AdminID, r, log.Named("telegram"))
		if err == nil {
			err = bot.Run(ctx)
		}
		if ctx.Err() != nil {
			log.Info("shutting down")
			return ctx.Err()
		}
		if attempt >= maxRetries {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		wait := time.Duration(attempt) * 10 * time.Second
		if wait > time.Minute {
			wait = time.Minute
		}
		log.Warn("transport failed, reconnecting",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
