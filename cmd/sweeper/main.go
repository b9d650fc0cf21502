// Command sweeper releases IN_CART and RESERVED tickets whose reservation
// window has passed.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"boxoffice/internal/ledger"
	"boxoffice/internal/notifications"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/database"
	"boxoffice/internal/store/pgstore"
	"boxoffice/internal/tickets"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/logger"
)

func main() {
	appLogger := logger.GetDefault()
	if err := godotenv.Load(); err != nil {
		appLogger.Info("No .env file found, using system environment variables")
	}
	cfg := config.Load()

	once := pflag.Bool("once", false, "run a single sweep and exit")
	ttl := pflag.Duration("ttl", cfg.Tickets.ReservationTTL, "age after which unpaid tickets are released")
	interval := pflag.Duration("interval", cfg.Tickets.SweepInterval, "time between sweeps")
	batch := pflag.Int("batch", cfg.Tickets.SweepBatchSize, "tickets released per unit of work")
	pflag.Parse()

	cfg.Tickets.ReservationTTL = *ttl
	cfg.Tickets.SweepInterval = *interval
	cfg.Tickets.SweepBatchSize = *batch
	if err := cfg.Validate(); err != nil {
		appLogger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	cacheService := cache.NewNoop()
	if db.Redis != nil {
		cacheService = cache.NewService(db.Redis, appLogger)
	}
	notifier, err := notifications.NewSender(cfg.Notifications, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize notification sender, falling back to log", slog.Any("error", err))
		notifier = notifications.NewLogSender(appLogger)
	}
	defer notifier.Close()

	st := pgstore.New(db.PostgreSQL)
	manager := tickets.NewManager(tickets.Config{
		Store:         st,
		Ledger:        ledger.New(ledger.Config{Store: st, Cache: cacheService, Logger: appLogger}),
		Logger:        appLogger,
		Notifier:      notifier,
		NotifyTimeout: cfg.Notifications.Timeout,
		RetainRemoved: cfg.Tickets.RetainRemovedTickets,
	})
	jp := tickets.NewJobProcessor(manager, &tickets.JobConfig{
		Interval:       cfg.Tickets.SweepInterval,
		ReservationTTL: cfg.Tickets.ReservationTTL,
		BatchSize:      cfg.Tickets.SweepBatchSize,
	}, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		released := jp.RunOnce(ctx)
		appLogger.Info("sweep finished", slog.Int("released", released))
		return
	}

	jp.Start(ctx)
	<-ctx.Done()
	jp.Stop()
	appLogger.Info("sweeper stopped")
}
