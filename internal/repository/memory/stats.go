package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/repository"
)

type Stats struct {
	s *Store
}

func (st *Stats) MonthTotals(_ context.Context, userID string, month time.Time) (models.MonthTotals, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	return st.totals(userID, month), nil
}

// totals вызывается под s.mu.
func (st *Stats) totals(userID string, month time.Time) models.MonthTotals {
	from, to := monthRange(month)
	totals := models.MonthTotals{Income: decimal.Zero, Expenses: decimal.Zero}

	for _, income := range st.s.incomes {
		if income.UserID == userID && inRange(income.Date, &from, &to) {
			totals.Income = totals.Income.Add(income.Amount)
		}
	}
	for _, expense := range st.s.expenses {
		if expense.UserID == userID && inRange(expense.Date, &from, &to) {
			totals.Expenses = totals.Expenses.Add(expense.Amount)
		}
	}

	return totals
}

func (st *Stats) SpendingByCategory(_ context.Context, userID string, month time.Time) ([]models.CategoryTotal, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	from, to := monthRange(month)
	byCategory := make(map[uuid.UUID]decimal.Decimal)
	for _, expense := range st.s.expenses {
		if expense.UserID == userID && inRange(expense.Date, &from, &to) {
			byCategory[expense.CategoryID] = byCategory[expense.CategoryID].Add(expense.Amount)
		}
	}

	out := make([]models.CategoryTotal, 0, len(byCategory))
	for categoryID, total := range byCategory {
		out = append(out, models.CategoryTotal{
			CategoryID: categoryID,
			Name:       st.s.categories[categoryID].Name,
			Total:      total,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (st *Stats) MonthlyComparison(_ context.Context, userID string, until time.Time, months int) ([]models.MonthlyTotals, error) {
	if months <= 0 {
		return nil, repository.ErrInvalid
	}

	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	last, _ := monthRange(until)
	out := make([]models.MonthlyTotals, 0, months)
	for i := months - 1; i >= 0; i-- {
		month := last.AddDate(0, -i, 0)
		totals := st.totals(userID, month)
		out = append(out, models.MonthlyTotals{Month: month, Income: totals.Income, Expenses: totals.Expenses})
	}
	return out, nil
}
