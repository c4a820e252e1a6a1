package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4/middleware"

	"example.com/finance-tracker/backend/internal/auth"
	"example.com/finance-tracker/backend/internal/config"
	"example.com/finance-tracker/backend/internal/database"
	"example.com/finance-tracker/backend/internal/events"
	"example.com/finance-tracker/backend/internal/ratelimit"
	"example.com/finance-tracker/backend/internal/repository/memory"
	"example.com/finance-tracker/backend/internal/server"
)

func main() {
	hashJobToken := flag.String("hash-job-token", "", "print a bcrypt hash for JOB_TOKEN_HASH and exit")
	flag.Parse()

	if *hashJobToken != "" {
		hash, err := auth.HashJobToken(*hashJobToken)
		if err != nil {
			slog.Error("failed to hash job token", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	ensureEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	deps := server.Deps{}

	switch cfg.DataBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage, data will be lost on restart")
		deps.Stores = server.MemoryStores(memory.New())
	default:
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(cfg.Database); err != nil {
				logger.Error("failed to run migrations", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}

		db, err := database.Open(context.Background(), cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()

		deps.Stores = server.PostgresStores(db)
		deps.DB = db
	}

	publisher, err := events.Connect(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
	if err != nil {
		logger.Warn("amqp unavailable, events stay in-process", slog.String("error", err.Error()))
		publisher = events.NopPublisher{}
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close event publisher", slog.String("error", err.Error()))
		}
	}()
	deps.Publisher = publisher

	if cfg.RateLimit.Backend == config.RateLimitRedis {
		client := ratelimit.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer client.Close()

		var store middleware.RateLimiterStore = ratelimit.NewRedisStore(
			client,
			"ratelimit:api",
			cfg.RateLimit.PerMinute+cfg.RateLimit.Burst,
			time.Minute,
			logger,
		)
		deps.RateLimitStore = store
	}

	e := server.New(cfg, logger, deps)
	httpServer := server.NewHTTPServer(cfg.Server, e)

	go func() {
		logger.Info("http server started",
			slog.String("addr", httpServer.Addr),
			slog.String("data_backend", cfg.DataBackend),
			slog.String("rate_limit_backend", cfg.RateLimit.Backend),
		)
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownSignal

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
