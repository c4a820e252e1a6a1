package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/backend/internal/auth"
	"example.com/finance-tracker/backend/internal/finance"
	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/repository"
)

type IncomeHandler struct {
	Incomes IncomeStore
}

// NewIncomeHandler создает обработчик доходов.
func NewIncomeHandler(incomes IncomeStore) *IncomeHandler {
	return &IncomeHandler{Incomes: incomes}
}

type IncomeRequest struct {
	CategoryID  *string         `json:"category_id" validate:"omitempty,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Source      string          `json:"source" validate:"max=200"`
	Description string          `json:"description" validate:"max=500"`
	Date        string          `json:"date" validate:"required"`
}

type IncomeResponse struct {
	ID          uuid.UUID       `json:"id"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Source      string          `json:"source"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// List возвращает доходы за период.
func (h *IncomeHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	from, to, err := parsePeriod(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	incomes, err := h.Incomes.ListByUser(c.Request().Context(), userID, from, to)
	if err != nil {
		return storeError(c, err, "income not found")
	}

	response := make([]IncomeResponse, 0, len(incomes))
	for _, income := range incomes {
		response = append(response, toIncomeResponse(income))
	}

	return c.JSON(http.StatusOK, response)
}

// Create добавляет доход.
func (h *IncomeHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	input, err := bindIncome(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	income, err := h.Incomes.Create(c.Request().Context(), userID, input)
	if err != nil {
		return storeError(c, err, "category not found")
	}

	return c.JSON(http.StatusCreated, toIncomeResponse(income))
}

// Update изменяет доход.
func (h *IncomeHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	incomeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid income id")
	}

	input, err := bindIncome(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	income, err := h.Incomes.Update(c.Request().Context(), userID, incomeID, input)
	if err != nil {
		return storeError(c, err, "income or category not found")
	}

	return c.JSON(http.StatusOK, toIncomeResponse(income))
}

// Delete удаляет доход.
func (h *IncomeHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	incomeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid income id")
	}

	if err := h.Incomes.Delete(c.Request().Context(), userID, incomeID); err != nil {
		return storeError(c, err, "income not found")
	}

	return c.NoContent(http.StatusNoContent)
}

func bindIncome(c echo.Context) (repository.IncomeInput, error) {
	var req IncomeRequest
	if err := c.Bind(&req); err != nil {
		return repository.IncomeInput{}, errInvalidPayload
	}
	if err := c.Validate(&req); err != nil {
		return repository.IncomeInput{}, errors.New(validationMessage(err))
	}

	if err := finance.ValidateAmount("amount", req.Amount); err != nil {
		return repository.IncomeInput{}, err
	}

	date, err := parseDate("date", req.Date)
	if err != nil {
		return repository.IncomeInput{}, err
	}

	input := repository.IncomeInput{
		Amount:      req.Amount,
		Source:      strings.TrimSpace(req.Source),
		Description: strings.TrimSpace(req.Description),
		Date:        date,
	}

	if req.CategoryID != nil && *req.CategoryID != "" {
		categoryID := uuid.MustParse(*req.CategoryID)
		input.CategoryID = &categoryID
	}

	return input, nil
}

func toIncomeResponse(income models.Income) IncomeResponse {
	return IncomeResponse{
		ID:          income.ID,
		CategoryID:  income.CategoryID,
		Amount:      income.Amount,
		Source:      income.Source,
		Description: income.Description,
		Date:        formatDate(income.Date),
		CreatedAt:   income.CreatedAt,
		UpdatedAt:   income.UpdatedAt,
	}
}
