package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/backend/internal/auth"
	"example.com/finance-tracker/backend/internal/events"
	"example.com/finance-tracker/backend/internal/finance"
	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/repository"
)

type RecurringGenerator interface {
	Generate(ctx context.Context, userID string, year, month *int) (finance.GenerateResult, error)
}

type RecurringHandler struct {
	Items     RecurringStore
	Generator RecurringGenerator
	Events    events.Publisher
}

// NewRecurringHandler создает обработчик шаблонов регулярных расходов.
func NewRecurringHandler(items RecurringStore, generator RecurringGenerator, publisher events.Publisher) *RecurringHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &RecurringHandler{Items: items, Generator: generator, Events: publisher}
}

type RecurringRequest struct {
	CategoryID  string          `json:"category_id" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=500"`
	DayOfMonth  int             `json:"day_of_month" validate:"required,min=1,max=31"`
	StartDate   string          `json:"start_date" validate:"required"`
	IsActive    *bool           `json:"is_active"`
}

type ToggleRecurringRequest struct {
	IsActive *bool `json:"is_active"`
}

type GenerateRequest struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
}

type RecurringResponse struct {
	ID                 uuid.UUID       `json:"id"`
	CategoryID         uuid.UUID       `json:"category_id"`
	Amount             decimal.Decimal `json:"amount"`
	Description        string          `json:"description"`
	DayOfMonth         int             `json:"day_of_month"`
	StartDate          string          `json:"start_date"`
	LastGeneratedMonth *string         `json:"last_generated_month"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// List возвращает шаблоны пользователя, опционально только активные или неактивные.
func (h *RecurringHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	active, err := optionalBool(c.QueryParam("active"), "active")
	if err != nil {
		return badRequest(c, err.Error())
	}

	items, err := h.Items.ListByUser(c.Request().Context(), userID, active)
	if err != nil {
		return storeError(c, err, "recurring item not found")
	}

	response := make([]RecurringResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toRecurringResponse(item))
	}

	return c.JSON(http.StatusOK, response)
}

// Create добавляет шаблон.
func (h *RecurringHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	input, err := bindRecurring(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	item, err := h.Items.Create(c.Request().Context(), userID, input)
	if err != nil {
		return storeError(c, err, "category not found")
	}

	return c.JSON(http.StatusCreated, toRecurringResponse(item))
}

// Update изменяет шаблон. Уже созданные расходы не меняются.
func (h *RecurringHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid recurring item id")
	}

	input, err := bindRecurring(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	item, err := h.Items.Update(c.Request().Context(), userID, itemID, input)
	if err != nil {
		return storeError(c, err, "recurring item or category not found")
	}

	return c.JSON(http.StatusOK, toRecurringResponse(item))
}

// Toggle включает или выключает шаблон. Без тела запроса статус инвертируется.
func (h *RecurringHandler) Toggle(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid recurring item id")
	}

	var req ToggleRecurringRequest
	if err = bindOptional(c, &req); err != nil {
		return badRequest(c, "invalid payload")
	}

	item, err := h.Items.SetActive(c.Request().Context(), userID, itemID, req.IsActive)
	if err != nil {
		return storeError(c, err, "recurring item not found")
	}

	return c.JSON(http.StatusOK, toRecurringResponse(item))
}

// Delete удаляет шаблон, созданные по нему расходы остаются.
func (h *RecurringHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid recurring item id")
	}

	if err := h.Items.Delete(c.Request().Context(), userID, itemID); err != nil {
		return storeError(c, err, "recurring item not found")
	}

	return c.NoContent(http.StatusNoContent)
}

// Generate создает расходы месяца по активным шаблонам пользователя.
func (h *RecurringHandler) Generate(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req GenerateRequest
	if err := bindOptional(c, &req); err != nil {
		return badRequest(c, "invalid payload")
	}

	ctx := c.Request().Context()
	result, err := h.Generator.Generate(ctx, userID, req.Year, req.Month)
	if err != nil {
		return storeError(c, err, "recurring item not found")
	}

	if result.GeneratedCount > 0 {
		msg := events.NewRecurringGenerated(userID, result.Month, result.GeneratedCount, result.SkippedCount, len(result.Failed))
		if err := h.Events.Publish(ctx, msg); err != nil {
			slog.WarnContext(ctx, "publish recurring event failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	return c.JSON(http.StatusOK, result)
}

func bindRecurring(c echo.Context) (repository.RecurringInput, error) {
	var req RecurringRequest
	if err := c.Bind(&req); err != nil {
		return repository.RecurringInput{}, errInvalidPayload
	}
	if err := c.Validate(&req); err != nil {
		return repository.RecurringInput{}, errors.New(validationMessage(err))
	}

	if err := finance.ValidateAmount("amount", req.Amount); err != nil {
		return repository.RecurringInput{}, err
	}
	if err := finance.ValidateDayOfMonth(req.DayOfMonth); err != nil {
		return repository.RecurringInput{}, err
	}

	startDate, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return repository.RecurringInput{}, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	return repository.RecurringInput{
		CategoryID:  uuid.MustParse(req.CategoryID),
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		DayOfMonth:  req.DayOfMonth,
		StartDate:   startDate,
		IsActive:    isActive,
	}, nil
}

func toRecurringResponse(item models.RecurringItem) RecurringResponse {
	var lastGenerated *string
	if item.LastGeneratedMonth != nil {
		formatted := formatDate(*item.LastGeneratedMonth)
		lastGenerated = &formatted
	}

	return RecurringResponse{
		ID:                 item.ID,
		CategoryID:         item.CategoryID,
		Amount:             item.Amount,
		Description:        item.Description,
		DayOfMonth:         item.DayOfMonth,
		StartDate:          formatDate(item.StartDate),
		LastGeneratedMonth: lastGenerated,
		IsActive:           item.IsActive,
		CreatedAt:          item.CreatedAt,
		UpdatedAt:          item.UpdatedAt,
	}
}
