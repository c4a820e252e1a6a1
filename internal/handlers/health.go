package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	DB Pinger
}

// NewHealthHandler создает проверку состояния; db может быть nil для in-memory режима.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{DB: db}
}

// Health возвращает статус сервиса и доступность базы данных.
func (h *HealthHandler) Health(c echo.Context) error {
	if h.DB == nil {
		return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Database: "unavailable"})
	}

	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
}
