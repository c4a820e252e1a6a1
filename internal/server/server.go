package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/finance-tracker/backend/internal/auth"
	"example.com/finance-tracker/backend/internal/config"
	"example.com/finance-tracker/backend/internal/events"
	"example.com/finance-tracker/backend/internal/finance"
	"example.com/finance-tracker/backend/internal/handlers"
	"example.com/finance-tracker/backend/internal/notifications"
	"example.com/finance-tracker/backend/internal/worker"
)

// Deps содержит внешние зависимости сервера, которые создаются в main.
type Deps struct {
	Stores    Stores
	Hub       *notifications.Hub
	Publisher events.Publisher
	// RateLimitStore переопределяет хранилище лимитов API; nil означает хранилище в памяти.
	RateLimitStore middleware.RateLimiterStore
	DB             handlers.Pinger
}

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, deps Deps) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	hub := deps.Hub
	if hub == nil {
		hub = notifications.NewHub()
	}

	publisher := events.Fanout{events.NewHubPublisher(hub)}
	if deps.Publisher != nil {
		publisher = append(publisher, deps.Publisher)
	}

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	generator := finance.NewGenerator(deps.Stores.Recurring, logger)
	insights := finance.NewInsightsService(deps.Stores.Stats, deps.Stores.Loans, logger)
	runner := worker.NewRunner(deps.Stores.Recurring, generator, publisher, logger, cfg.Worker.Timeout)

	h := routeHandlers{
		health:        handlers.NewHealthHandler(deps.DB),
		categories:    handlers.NewCategoryHandler(deps.Stores.Categories),
		expenses:      handlers.NewExpenseHandler(deps.Stores.Expenses, publisher),
		incomes:       handlers.NewIncomeHandler(deps.Stores.Incomes),
		loans:         handlers.NewLoanHandler(deps.Stores.Loans),
		recurring:     handlers.NewRecurringHandler(deps.Stores.Recurring, generator, publisher),
		dashboard:     handlers.NewDashboardHandler(deps.Stores.Stats, insights),
		notifications: handlers.NewNotificationHandler(hub),
		jobs:          handlers.NewJobHandler(runner),
	}

	apiStore := deps.RateLimitStore
	if apiStore == nil {
		apiStore = memoryRateLimitStore(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	}

	registerRoutes(
		e,
		h,
		auth.JWTMiddleware(verifier),
		auth.JWTQueryMiddleware(verifier),
		auth.JobTokenMiddleware(cfg.Auth.JobTokenHash),
		userRateLimiter(apiStore),
		middleware.RateLimiter(memoryRateLimitStore(cfg.RateLimit.JobPerMinute, 1)),
	)

	return e
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}

			if userID, ok := auth.UserIDFromContext(c); ok {
				attrs = append(attrs, slog.String("user_id", userID))
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func memoryRateLimitStore(perMinute, burst int) middleware.RateLimiterStore {
	limit := rate.Limit(float64(perMinute) / 60.0)
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     burst,
		ExpiresIn: time.Minute,
	})
}

// userRateLimiter ограничивает запросы по пользователю из токена, а без него по IP.
func userRateLimiter(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if userID, ok := auth.UserIDFromContext(c); ok {
				return "user:" + userID, nil
			}
			return "ip:" + c.RealIP(), nil
		},
	})
}
