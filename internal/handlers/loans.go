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

type LoanHandler struct {
	Loans LoanStore
	now   func() time.Time
}

// NewLoanHandler создает обработчик кредитов и калькулятора платежей.
func NewLoanHandler(loans LoanStore) *LoanHandler {
	return &LoanHandler{Loans: loans, now: time.Now}
}

type LoanRequest struct {
	Principal   decimal.Decimal `json:"principal"`
	AnnualRate  decimal.Decimal `json:"annual_rate"`
	TermMonths  int             `json:"term_months" validate:"required,min=1,max=600"`
	StartDate   string          `json:"start_date" validate:"required"`
	Description string          `json:"description" validate:"max=500"`
}

type CalculateRequest struct {
	Principal  decimal.Decimal `json:"principal"`
	AnnualRate decimal.Decimal `json:"annual_rate"`
	TermMonths int             `json:"term_months" validate:"required,min=1,max=600"`
}

type CalculateResponse struct {
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	TotalPayment   decimal.Decimal `json:"total_payment"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
}

type LoanResponse struct {
	ID               uuid.UUID       `json:"id"`
	Principal        decimal.Decimal `json:"principal"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	TermMonths       int             `json:"term_months"`
	StartDate        string          `json:"start_date"`
	Description      string          `json:"description"`
	MonthlyPayment   decimal.Decimal `json:"monthly_payment"`
	IsActive         bool            `json:"is_active"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type ObligationsResponse struct {
	TotalMonthlyObligations decimal.Decimal `json:"total_monthly_obligations"`
	ActiveLoans             int             `json:"active_loans"`
}

type ScheduleEntryResponse struct {
	Period           int             `json:"period"`
	DueDate          string          `json:"due_date"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	Total            decimal.Decimal `json:"total"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// List возвращает кредиты с текущим платежом и оценкой остатка.
func (h *LoanHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	loans, err := h.Loans.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return storeError(c, err, "loan not found")
	}

	return c.JSON(http.StatusOK, toLoanResponses(loans, h.now()))
}

// Create добавляет кредит.
func (h *LoanHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	input, err := bindLoan(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	loan, err := h.Loans.Create(c.Request().Context(), userID, input)
	if err != nil {
		return storeError(c, err, "loan not found")
	}

	return c.JSON(http.StatusCreated, toLoanResponse(loan, h.now()))
}

// Update изменяет условия кредита.
func (h *LoanHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid loan id")
	}

	input, err := bindLoan(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	loan, err := h.Loans.Update(c.Request().Context(), userID, loanID, input)
	if err != nil {
		return storeError(c, err, "loan not found")
	}

	return c.JSON(http.StatusOK, toLoanResponse(loan, h.now()))
}

// Delete удаляет кредит.
func (h *LoanHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid loan id")
	}

	if err := h.Loans.Delete(c.Request().Context(), userID, loanID); err != nil {
		return storeError(c, err, "loan not found")
	}

	return c.NoContent(http.StatusNoContent)
}

// Calculate считает ежемесячный платеж без сохранения кредита.
func (h *LoanHandler) Calculate(c echo.Context) error {
	if _, ok := auth.UserIDFromContext(c); !ok {
		return unauthorized(c)
	}

	var req CalculateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	if err := finance.ValidateLoanTerms(req.Principal, req.AnnualRate, req.TermMonths); err != nil {
		return storeError(c, err, "loan not found")
	}

	payment := finance.MonthlyPayment(req.Principal, req.AnnualRate, req.TermMonths)
	total := payment.Mul(decimal.NewFromInt(int64(req.TermMonths))).Round(2)

	return c.JSON(http.StatusOK, CalculateResponse{
		MonthlyPayment: payment,
		TotalPayment:   total,
		TotalInterest:  total.Sub(req.Principal).Round(2),
	})
}

// Obligations возвращает сумму ежемесячных платежей по активным кредитам.
func (h *LoanHandler) Obligations(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	loans, err := h.Loans.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return storeError(c, err, "loan not found")
	}

	now := h.now()
	active := 0
	for _, loan := range loans {
		if finance.IsActive(loan, now) {
			active++
		}
	}

	return c.JSON(http.StatusOK, ObligationsResponse{
		TotalMonthlyObligations: finance.TotalObligations(loans, now),
		ActiveLoans:             active,
	})
}

// Schedule возвращает график платежей по кредиту.
func (h *LoanHandler) Schedule(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid loan id")
	}

	loan, err := h.Loans.GetByID(c.Request().Context(), userID, loanID)
	if err != nil {
		return storeError(c, err, "loan not found")
	}

	entries := finance.Schedule(loan)
	response := make([]ScheduleEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, ScheduleEntryResponse{
			Period:           entry.Period,
			DueDate:          formatDate(entry.DueDate),
			Principal:        entry.Principal,
			Interest:         entry.Interest,
			Total:            entry.Total,
			RemainingBalance: entry.RemainingBalance,
		})
	}

	return c.JSON(http.StatusOK, response)
}

func bindLoan(c echo.Context) (repository.LoanInput, error) {
	var req LoanRequest
	if err := c.Bind(&req); err != nil {
		return repository.LoanInput{}, errInvalidPayload
	}
	if err := c.Validate(&req); err != nil {
		return repository.LoanInput{}, errors.New(validationMessage(err))
	}

	if err := finance.ValidateLoanTerms(req.Principal, req.AnnualRate, req.TermMonths); err != nil {
		return repository.LoanInput{}, err
	}

	startDate, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return repository.LoanInput{}, err
	}

	return repository.LoanInput{
		Principal:   req.Principal,
		AnnualRate:  req.AnnualRate,
		TermMonths:  req.TermMonths,
		StartDate:   startDate,
		Description: strings.TrimSpace(req.Description),
	}, nil
}

func toLoanResponses(loans []models.Loan, now time.Time) []LoanResponse {
	response := make([]LoanResponse, 0, len(loans))
	for _, loan := range loans {
		response = append(response, toLoanResponse(loan, now))
	}
	return response
}

func toLoanResponse(loan models.Loan, now time.Time) LoanResponse {
	return LoanResponse{
		ID:               loan.ID,
		Principal:        loan.Principal,
		AnnualRate:       loan.AnnualRate,
		TermMonths:       loan.TermMonths,
		StartDate:        formatDate(loan.StartDate),
		Description:      loan.Description,
		MonthlyPayment:   finance.MonthlyPayment(loan.Principal, loan.AnnualRate, loan.TermMonths),
		IsActive:         finance.IsActive(loan, now),
		RemainingBalance: finance.RemainingBalance(loan, now),
		CreatedAt:        loan.CreatedAt,
		UpdatedAt:        loan.UpdatedAt,
	}
}
