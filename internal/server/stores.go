package server

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/finance-tracker/backend/internal/finance"
	"example.com/finance-tracker/backend/internal/handlers"
	"example.com/finance-tracker/backend/internal/repository"
	"example.com/finance-tracker/backend/internal/repository/memory"
	"example.com/finance-tracker/backend/internal/worker"
)

type RecurringBackend interface {
	handlers.RecurringStore
	finance.RecurringStore
	worker.UserLister
}

// Stores объединяет хранилища, нужные API и планировщику.
type Stores struct {
	Categories handlers.CategoryStore
	Expenses   handlers.ExpenseStore
	Incomes    handlers.IncomeStore
	Loans      handlers.LoanStore
	Recurring  RecurringBackend
	Stats      handlers.StatsStore
}

// PostgresStores создает репозитории поверх пула PostgreSQL.
func PostgresStores(db *pgxpool.Pool) Stores {
	return Stores{
		Categories: repository.NewCategoryRepository(db),
		Expenses:   repository.NewExpenseRepository(db),
		Incomes:    repository.NewIncomeRepository(db),
		Loans:      repository.NewLoanRepository(db),
		Recurring:  repository.NewRecurringRepository(db),
		Stats:      repository.NewStatsRepository(db),
	}
}

// MemoryStores создает хранилища в памяти процесса.
func MemoryStores(store *memory.Store) Stores {
	return Stores{
		Categories: store.Categories(),
		Expenses:   store.Expenses(),
		Incomes:    store.Incomes(),
		Loans:      store.Loans(),
		Recurring:  store.Recurring(),
		Stats:      store.Stats(),
	}
}
