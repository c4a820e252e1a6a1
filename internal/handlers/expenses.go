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

type ExpenseHandler struct {
	Expenses ExpenseStore
	Events   events.Publisher
}

// NewExpenseHandler создает обработчик расходов.
func NewExpenseHandler(expenses ExpenseStore, publisher events.Publisher) *ExpenseHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ExpenseHandler{Expenses: expenses, Events: publisher}
}

type ExpenseRequest struct {
	CategoryID  string          `json:"category_id" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=500"`
	Date        string          `json:"date" validate:"required"`
}

type ExpenseResponse struct {
	ID          uuid.UUID       `json:"id"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	RecurringID *uuid.UUID      `json:"recurring_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// List возвращает расходы за период, опционально по категории.
func (h *ExpenseHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	from, to, err := parsePeriod(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	filter := repository.ExpenseFilter{From: from, To: to}
	if raw := strings.TrimSpace(c.QueryParam("category_id")); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "invalid category id")
		}
		filter.CategoryID = &categoryID
	}

	expenses, err := h.Expenses.ListByUser(c.Request().Context(), userID, filter)
	if err != nil {
		return storeError(c, err, "expense not found")
	}

	response := make([]ExpenseResponse, 0, len(expenses))
	for _, expense := range expenses {
		response = append(response, toExpenseResponse(expense))
	}

	return c.JSON(http.StatusOK, response)
}

// Create добавляет расход и публикует событие expense.created.
func (h *ExpenseHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	input, err := bindExpense(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	expense, err := h.Expenses.Create(c.Request().Context(), userID, input)
	if err != nil {
		return storeError(c, err, "category not found")
	}

	h.publishCreated(c.Request().Context(), userID, expense)
	return c.JSON(http.StatusCreated, toExpenseResponse(expense))
}

// Update изменяет расход.
func (h *ExpenseHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid expense id")
	}

	input, err := bindExpense(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	expense, err := h.Expenses.Update(c.Request().Context(), userID, expenseID, input)
	if err != nil {
		return storeError(c, err, "expense or category not found")
	}

	return c.JSON(http.StatusOK, toExpenseResponse(expense))
}

// Delete удаляет расход.
func (h *ExpenseHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid expense id")
	}

	if err := h.Expenses.Delete(c.Request().Context(), userID, expenseID); err != nil {
		return storeError(c, err, "expense not found")
	}

	return c.NoContent(http.StatusNoContent)
}

func bindExpense(c echo.Context) (repository.ExpenseInput, error) {
	var req ExpenseRequest
	if err := c.Bind(&req); err != nil {
		return repository.ExpenseInput{}, errInvalidPayload
	}
	if err := c.Validate(&req); err != nil {
		return repository.ExpenseInput{}, errors.New(validationMessage(err))
	}

	if err := finance.ValidateAmount("amount", req.Amount); err != nil {
		return repository.ExpenseInput{}, err
	}

	date, err := parseDate("date", req.Date)
	if err != nil {
		return repository.ExpenseInput{}, err
	}

	return repository.ExpenseInput{
		CategoryID:  uuid.MustParse(req.CategoryID),
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		Date:        date,
	}, nil
}

func (h *ExpenseHandler) publishCreated(ctx context.Context, userID string, expense models.Expense) {
	msg := events.NewMessage(events.TypeExpenseCreated, userID, events.ExpenseCreated{
		ExpenseID:  expense.ID.String(),
		CategoryID: expense.CategoryID.String(),
		Amount:     expense.Amount.StringFixed(2),
		Date:       formatDate(expense.Date),
	})
	if err := h.Events.Publish(ctx, msg); err != nil {
		slog.WarnContext(ctx, "publish expense event failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

func toExpenseResponse(expense models.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          expense.ID,
		CategoryID:  expense.CategoryID,
		Amount:      expense.Amount,
		Description: expense.Description,
		Date:        formatDate(expense.Date),
		RecurringID: expense.RecurringID,
		CreatedAt:   expense.CreatedAt,
		UpdatedAt:   expense.UpdatedAt,
	}
}
