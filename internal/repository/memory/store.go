// Package memory хранит данные в памяти процесса. Используется в тестах и для
// локального запуска без PostgreSQL.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
)

type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	categories map[uuid.UUID]models.Category
	expenses   map[uuid.UUID]models.Expense
	incomes    map[uuid.UUID]models.Income
	loans      map[uuid.UUID]models.Loan
	recurring  map[uuid.UUID]models.RecurringItem
}

// New создает пустое хранилище.
func New() *Store {
	return &Store{
		now:        time.Now,
		categories: make(map[uuid.UUID]models.Category),
		expenses:   make(map[uuid.UUID]models.Expense),
		incomes:    make(map[uuid.UUID]models.Income),
		loans:      make(map[uuid.UUID]models.Loan),
		recurring:  make(map[uuid.UUID]models.RecurringItem),
	}
}

func (s *Store) Categories() *Categories { return &Categories{s: s} }

func (s *Store) Expenses() *Expenses { return &Expenses{s: s} }

func (s *Store) Incomes() *Incomes { return &Incomes{s: s} }

func (s *Store) Loans() *Loans { return &Loans{s: s} }

func (s *Store) Recurring() *Recurring { return &Recurring{s: s} }

func (s *Store) Stats() *Stats { return &Stats{s: s} }

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// ownsCategory вызывается под s.mu.
func (s *Store) ownsCategory(userID string, categoryID uuid.UUID, kind models.CategoryKind) bool {
	category, ok := s.categories[categoryID]
	return ok && category.UserID == userID && category.Kind == kind
}

func inRange(date time.Time, from, to *time.Time) bool {
	if from != nil && date.Before(*from) {
		return false
	}
	if to != nil && !date.Before(*to) {
		return false
	}
	return true
}

func monthRange(month time.Time) (time.Time, time.Time) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// hasGeneratedExpense сообщает, есть ли уже расход статьи в месяце month.
func (s *Store) hasGeneratedExpense(itemID uuid.UUID, month time.Time) bool {
	from, to := monthRange(month)
	for _, expense := range s.expenses {
		if expense.RecurringID != nil && *expense.RecurringID == itemID && inRange(expense.Date, &from, &to) {
			return true
		}
	}
	return false
}

func sortByDateDesc[T any](items []T, date func(T) time.Time, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := date(items[i]), date(items[j])
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return created(items[i]).After(created(items[j]))
	})
}
