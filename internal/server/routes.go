package server

import (
	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/backend/internal/handlers"
)

type routeHandlers struct {
	health        *handlers.HealthHandler
	categories    *handlers.CategoryHandler
	expenses      *handlers.ExpenseHandler
	incomes       *handlers.IncomeHandler
	loans         *handlers.LoanHandler
	recurring     *handlers.RecurringHandler
	dashboard     *handlers.DashboardHandler
	notifications *handlers.NotificationHandler
	jobs          *handlers.JobHandler
}

func registerRoutes(
	e *echo.Echo,
	h routeHandlers,
	authMiddleware echo.MiddlewareFunc,
	streamAuthMiddleware echo.MiddlewareFunc,
	jobMiddleware echo.MiddlewareFunc,
	apiRateLimiter echo.MiddlewareFunc,
	jobRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", h.health.Health)

	api := e.Group("/api/v1")
	protected := api.Group("", authMiddleware, apiRateLimiter)

	categories := protected.Group("/categories")
	categories.GET("", h.categories.List)
	categories.POST("", h.categories.Create)
	categories.PUT("/:id", h.categories.Update)
	categories.DELETE("/:id", h.categories.Delete)

	expenses := protected.Group("/expenses")
	expenses.GET("", h.expenses.List)
	expenses.POST("", h.expenses.Create)
	expenses.PUT("/:id", h.expenses.Update)
	expenses.DELETE("/:id", h.expenses.Delete)

	incomes := protected.Group("/incomes")
	incomes.GET("", h.incomes.List)
	incomes.POST("", h.incomes.Create)
	incomes.PUT("/:id", h.incomes.Update)
	incomes.DELETE("/:id", h.incomes.Delete)

	loans := protected.Group("/loans")
	loans.GET("", h.loans.List)
	loans.POST("", h.loans.Create)
	loans.POST("/calculate", h.loans.Calculate)
	loans.GET("/obligations", h.loans.Obligations)
	loans.GET("/:id/schedule", h.loans.Schedule)
	loans.PUT("/:id", h.loans.Update)
	loans.DELETE("/:id", h.loans.Delete)

	recurring := protected.Group("/recurring")
	recurring.GET("", h.recurring.List)
	recurring.POST("", h.recurring.Create)
	recurring.POST("/generate", h.recurring.Generate)
	recurring.PUT("/:id", h.recurring.Update)
	recurring.PATCH("/:id/toggle", h.recurring.Toggle)
	recurring.DELETE("/:id", h.recurring.Delete)

	protected.GET("/dashboard", h.dashboard.Dashboard)
	protected.GET("/insights", h.dashboard.ListInsights)

	notifications := api.Group("/notifications", streamAuthMiddleware)
	notifications.GET("/stream", h.notifications.Stream)

	internal := e.Group("/internal", jobRateLimiter, jobMiddleware)
	internal.POST("/recurring/run", h.jobs.RunRecurring)
}
