package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"example.com/finance-tracker/backend/internal/config"
	"example.com/finance-tracker/backend/internal/database"
	"example.com/finance-tracker/backend/internal/events"
	"example.com/finance-tracker/backend/internal/finance"
	"example.com/finance-tracker/backend/internal/repository"
	"example.com/finance-tracker/backend/internal/worker"
)

// recurring-worker периодически создает расходы по регулярным статьям для всех пользователей.
func main() {
	if os.Getenv("ENV_FILE") == "" {
		if _, err := os.Stat(".env"); err == nil {
			_ = os.Setenv("ENV_FILE", ".env")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Хранилище в памяти не разделяется между процессами, воркеру нечего обрабатывать.
	if cfg.DataBackend != config.BackendPostgres {
		logger.Error("recurring-worker requires DATA_BACKEND=postgres", slog.String("data_backend", cfg.DataBackend))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	publisher, err := events.Connect(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
	if err != nil {
		logger.Warn("amqp unavailable, events are not published", slog.String("error", err.Error()))
		publisher = events.NopPublisher{}
	}
	defer publisher.Close()

	items := repository.NewRecurringRepository(db)
	generator := finance.NewGenerator(items, logger)
	runner := worker.NewRunner(items, generator, publisher, logger, cfg.Worker.Timeout)

	logger.Info("recurring-worker started", slog.Duration("interval", cfg.Worker.Interval))
	runner.Run(ctx, cfg.Worker.Interval)
	logger.Info("recurring-worker stopped")
}
