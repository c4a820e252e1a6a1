package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/repository"
)

type Expenses struct {
	s *Store
}

func (e *Expenses) ListByUser(_ context.Context, userID string, filter repository.ExpenseFilter) ([]models.Expense, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	out := make([]models.Expense, 0)
	for _, expense := range e.s.expenses {
		if expense.UserID != userID || !inRange(expense.Date, filter.From, filter.To) {
			continue
		}
		if filter.CategoryID != nil && expense.CategoryID != *filter.CategoryID {
			continue
		}
		out = append(out, expense)
	}

	sortByDateDesc(out, func(x models.Expense) time.Time { return x.Date }, func(x models.Expense) time.Time { return x.CreatedAt })
	return out, nil
}

func (e *Expenses) Create(_ context.Context, userID string, input repository.ExpenseInput) (models.Expense, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	if !e.s.ownsCategory(userID, input.CategoryID, models.CategoryKindExpense) {
		return models.Expense{}, repository.ErrNotFound
	}

	now := e.s.timestamp()
	expense := models.Expense{
		ID:          uuid.New(),
		UserID:      userID,
		CategoryID:  input.CategoryID,
		Amount:      input.Amount,
		Description: input.Description,
		Date:        input.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.s.expenses[expense.ID] = expense
	return expense, nil
}

func (e *Expenses) Update(_ context.Context, userID string, expenseID uuid.UUID, input repository.ExpenseInput) (models.Expense, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	expense, ok := e.s.expenses[expenseID]
	if !ok || expense.UserID != userID || !e.s.ownsCategory(userID, input.CategoryID, models.CategoryKindExpense) {
		return models.Expense{}, repository.ErrNotFound
	}

	// Перенесенный в другой месяц расход больше не считается сгенерированным.
	if !sameMonth(expense.Date, input.Date) {
		expense.RecurringID = nil
	}
	expense.CategoryID = input.CategoryID
	expense.Amount = input.Amount
	expense.Description = input.Description
	expense.Date = input.Date
	expense.UpdatedAt = e.s.timestamp()
	e.s.expenses[expenseID] = expense
	return expense, nil
}

func (e *Expenses) Delete(_ context.Context, userID string, expenseID uuid.UUID) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	expense, ok := e.s.expenses[expenseID]
	if !ok || expense.UserID != userID {
		return repository.ErrNotFound
	}

	delete(e.s.expenses, expenseID)
	return nil
}

type Incomes struct {
	s *Store
}

func (in *Incomes) ListByUser(_ context.Context, userID string, from, to *time.Time) ([]models.Income, error) {
	in.s.mu.Lock()
	defer in.s.mu.Unlock()

	out := make([]models.Income, 0)
	for _, income := range in.s.incomes {
		if income.UserID == userID && inRange(income.Date, from, to) {
			out = append(out, income)
		}
	}

	sortByDateDesc(out, func(x models.Income) time.Time { return x.Date }, func(x models.Income) time.Time { return x.CreatedAt })
	return out, nil
}

func (in *Incomes) Create(_ context.Context, userID string, input repository.IncomeInput) (models.Income, error) {
	in.s.mu.Lock()
	defer in.s.mu.Unlock()

	if input.CategoryID != nil && !in.s.ownsCategory(userID, *input.CategoryID, models.CategoryKindIncome) {
		return models.Income{}, repository.ErrNotFound
	}

	now := in.s.timestamp()
	income := models.Income{
		ID:          uuid.New(),
		UserID:      userID,
		CategoryID:  input.CategoryID,
		Amount:      input.Amount,
		Source:      input.Source,
		Description: input.Description,
		Date:        input.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	in.s.incomes[income.ID] = income
	return income, nil
}

func (in *Incomes) Update(_ context.Context, userID string, incomeID uuid.UUID, input repository.IncomeInput) (models.Income, error) {
	in.s.mu.Lock()
	defer in.s.mu.Unlock()

	income, ok := in.s.incomes[incomeID]
	if !ok || income.UserID != userID {
		return models.Income{}, repository.ErrNotFound
	}
	if input.CategoryID != nil && !in.s.ownsCategory(userID, *input.CategoryID, models.CategoryKindIncome) {
		return models.Income{}, repository.ErrNotFound
	}

	income.CategoryID = input.CategoryID
	income.Amount = input.Amount
	income.Source = input.Source
	income.Description = input.Description
	income.Date = input.Date
	income.UpdatedAt = in.s.timestamp()
	in.s.incomes[incomeID] = income
	return income, nil
}

func (in *Incomes) Delete(_ context.Context, userID string, incomeID uuid.UUID) error {
	in.s.mu.Lock()
	defer in.s.mu.Unlock()

	income, ok := in.s.incomes[incomeID]
	if !ok || income.UserID != userID {
		return repository.ErrNotFound
	}

	delete(in.s.incomes, incomeID)
	return nil
}

type Loans struct {
	s *Store
}

func (l *Loans) ListByUser(_ context.Context, userID string) ([]models.Loan, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	out := make([]models.Loan, 0)
	for _, loan := range l.s.loans {
		if loan.UserID == userID {
			out = append(out, loan)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (l *Loans) GetByID(_ context.Context, userID string, loanID uuid.UUID) (models.Loan, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	loan, ok := l.s.loans[loanID]
	if !ok || loan.UserID != userID {
		return models.Loan{}, repository.ErrNotFound
	}
	return loan, nil
}

func (l *Loans) Create(_ context.Context, userID string, input repository.LoanInput) (models.Loan, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	now := l.s.timestamp()
	loan := models.Loan{
		ID:          uuid.New(),
		UserID:      userID,
		Principal:   input.Principal,
		AnnualRate:  input.AnnualRate,
		TermMonths:  input.TermMonths,
		StartDate:   input.StartDate,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.s.loans[loan.ID] = loan
	return loan, nil
}

func (l *Loans) Update(_ context.Context, userID string, loanID uuid.UUID, input repository.LoanInput) (models.Loan, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	loan, ok := l.s.loans[loanID]
	if !ok || loan.UserID != userID {
		return models.Loan{}, repository.ErrNotFound
	}

	loan.Principal = input.Principal
	loan.AnnualRate = input.AnnualRate
	loan.TermMonths = input.TermMonths
	loan.StartDate = input.StartDate
	loan.Description = input.Description
	loan.UpdatedAt = l.s.timestamp()
	l.s.loans[loanID] = loan
	return loan, nil
}

func (l *Loans) Delete(_ context.Context, userID string, loanID uuid.UUID) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	loan, ok := l.s.loans[loanID]
	if !ok || loan.UserID != userID {
		return repository.ErrNotFound
	}

	delete(l.s.loans, loanID)
	return nil
}
