package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/repository"
)

// Интерфейсы хранилищ реализуют и репозитории PostgreSQL, и memory.Store.

type CategoryStore interface {
	ListByUser(ctx context.Context, userID string, kind *models.CategoryKind) ([]models.Category, error)
	Create(ctx context.Context, userID string, name string, kind models.CategoryKind, color *string) (models.Category, error)
	Update(ctx context.Context, userID string, categoryID uuid.UUID, name string, color *string) (models.Category, error)
	Delete(ctx context.Context, userID string, categoryID uuid.UUID) error
}

type ExpenseStore interface {
	ListByUser(ctx context.Context, userID string, filter repository.ExpenseFilter) ([]models.Expense, error)
	Create(ctx context.Context, userID string, input repository.ExpenseInput) (models.Expense, error)
	Update(ctx context.Context, userID string, expenseID uuid.UUID, input repository.ExpenseInput) (models.Expense, error)
	Delete(ctx context.Context, userID string, expenseID uuid.UUID) error
}

type IncomeStore interface {
	ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]models.Income, error)
	Create(ctx context.Context, userID string, input repository.IncomeInput) (models.Income, error)
	Update(ctx context.Context, userID string, incomeID uuid.UUID, input repository.IncomeInput) (models.Income, error)
	Delete(ctx context.Context, userID string, incomeID uuid.UUID) error
}

type LoanStore interface {
	ListByUser(ctx context.Context, userID string) ([]models.Loan, error)
	GetByID(ctx context.Context, userID string, loanID uuid.UUID) (models.Loan, error)
	Create(ctx context.Context, userID string, input repository.LoanInput) (models.Loan, error)
	Update(ctx context.Context, userID string, loanID uuid.UUID, input repository.LoanInput) (models.Loan, error)
	Delete(ctx context.Context, userID string, loanID uuid.UUID) error
}

type RecurringStore interface {
	ListByUser(ctx context.Context, userID string, active *bool) ([]models.RecurringItem, error)
	GetByID(ctx context.Context, userID string, itemID uuid.UUID) (models.RecurringItem, error)
	Create(ctx context.Context, userID string, input repository.RecurringInput) (models.RecurringItem, error)
	Update(ctx context.Context, userID string, itemID uuid.UUID, input repository.RecurringInput) (models.RecurringItem, error)
	SetActive(ctx context.Context, userID string, itemID uuid.UUID, active *bool) (models.RecurringItem, error)
	Delete(ctx context.Context, userID string, itemID uuid.UUID) error
}

type StatsStore interface {
	MonthTotals(ctx context.Context, userID string, month time.Time) (models.MonthTotals, error)
	SpendingByCategory(ctx context.Context, userID string, month time.Time) ([]models.CategoryTotal, error)
	MonthlyComparison(ctx context.Context, userID string, until time.Time, months int) ([]models.MonthlyTotals, error)
}
