package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/backend/internal/worker"
)

type RecurringRunner interface {
	RunOnce(ctx context.Context) (worker.Summary, error)
}

type JobHandler struct {
	Runner RecurringRunner
}

// NewJobHandler создает обработчик внутренних заданий планировщика.
func NewJobHandler(runner RecurringRunner) *JobHandler {
	return &JobHandler{Runner: runner}
}

// RunRecurring запускает генерацию регулярных расходов для всех пользователей.
func (h *JobHandler) RunRecurring(c echo.Context) error {
	summary, err := h.Runner.RunOnce(c.Request().Context())
	if err != nil {
		return storeError(c, err, "")
	}

	return c.JSON(http.StatusOK, summary)
}
