package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/repository"
)

type Recurring struct {
	s *Store
}

func (r *Recurring) list(match func(models.RecurringItem) bool) []models.RecurringItem {
	out := make([]models.RecurringItem, 0)
	for _, item := range r.s.recurring {
		if match(item) {
			out = append(out, item)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DayOfMonth != out[j].DayOfMonth {
			return out[i].DayOfMonth < out[j].DayOfMonth
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *Recurring) ListByUser(_ context.Context, userID string, active *bool) ([]models.RecurringItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.list(func(item models.RecurringItem) bool {
		return item.UserID == userID && (active == nil || item.IsActive == *active)
	}), nil
}

func (r *Recurring) ListRecurringForGeneration(_ context.Context, userID string, through time.Time) ([]models.RecurringItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.list(func(item models.RecurringItem) bool {
		return item.UserID == userID && item.IsActive && !item.StartDate.After(through)
	}), nil
}

func (r *Recurring) ListUsersWithActive(_ context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := make(map[string]struct{})
	users := make([]string, 0)
	for _, item := range r.s.recurring {
		if !item.IsActive {
			continue
		}
		if _, ok := seen[item.UserID]; ok {
			continue
		}
		seen[item.UserID] = struct{}{}
		users = append(users, item.UserID)
	}

	sort.Strings(users)
	return users, nil
}

func (r *Recurring) GetByID(_ context.Context, userID string, itemID uuid.UUID) (models.RecurringItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.recurring[itemID]
	if !ok || item.UserID != userID {
		return models.RecurringItem{}, repository.ErrNotFound
	}
	return item, nil
}

func (r *Recurring) Create(_ context.Context, userID string, input repository.RecurringInput) (models.RecurringItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.ownsCategory(userID, input.CategoryID, models.CategoryKindExpense) {
		return models.RecurringItem{}, repository.ErrNotFound
	}

	now := r.s.timestamp()
	item := models.RecurringItem{
		ID:          uuid.New(),
		UserID:      userID,
		CategoryID:  input.CategoryID,
		Amount:      input.Amount,
		Description: input.Description,
		DayOfMonth:  input.DayOfMonth,
		StartDate:   input.StartDate,
		IsActive:    input.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.s.recurring[item.ID] = item
	return item, nil
}

func (r *Recurring) Update(_ context.Context, userID string, itemID uuid.UUID, input repository.RecurringInput) (models.RecurringItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.recurring[itemID]
	if !ok || item.UserID != userID || !r.s.ownsCategory(userID, input.CategoryID, models.CategoryKindExpense) {
		return models.RecurringItem{}, repository.ErrNotFound
	}

	item.CategoryID = input.CategoryID
	item.Amount = input.Amount
	item.Description = input.Description
	item.DayOfMonth = input.DayOfMonth
	item.StartDate = input.StartDate
	item.IsActive = input.IsActive
	item.UpdatedAt = r.s.timestamp()
	r.s.recurring[itemID] = item
	return item, nil
}

func (r *Recurring) SetActive(_ context.Context, userID string, itemID uuid.UUID, active *bool) (models.RecurringItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.recurring[itemID]
	if !ok || item.UserID != userID {
		return models.RecurringItem{}, repository.ErrNotFound
	}

	if active != nil {
		item.IsActive = *active
	} else {
		item.IsActive = !item.IsActive
	}
	item.UpdatedAt = r.s.timestamp()
	r.s.recurring[itemID] = item
	return item, nil
}

func (r *Recurring) Delete(_ context.Context, userID string, itemID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.recurring[itemID]
	if !ok || item.UserID != userID {
		return repository.ErrNotFound
	}

	for id, expense := range r.s.expenses {
		if expense.RecurringID != nil && *expense.RecurringID == itemID {
			expense.RecurringID = nil
			r.s.expenses[id] = expense
		}
	}

	delete(r.s.recurring, itemID)
	return nil
}

// MaterializeRecurring выставляет маркер и создает расход под одной блокировкой.
func (r *Recurring) MaterializeRecurring(_ context.Context, occ models.RecurringOccurrence) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.recurring[occ.RecurringID]
	if !ok || item.UserID != occ.UserID {
		return false, repository.ErrNotFound
	}
	if !item.IsActive || (item.LastGeneratedMonth != nil && item.LastGeneratedMonth.Equal(occ.Month)) {
		return false, nil
	}
	if category, ok := r.s.categories[occ.CategoryID]; !ok || category.UserID != occ.UserID {
		return false, repository.ErrNotFound
	}
	if r.s.hasGeneratedExpense(occ.RecurringID, occ.Month) {
		return false, nil
	}

	now := r.s.timestamp()
	recurringID := occ.RecurringID
	expense := models.Expense{
		ID:          uuid.New(),
		UserID:      occ.UserID,
		CategoryID:  occ.CategoryID,
		Amount:      occ.Amount,
		Description: occ.Description,
		Date:        occ.Date,
		RecurringID: &recurringID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.s.expenses[expense.ID] = expense

	month := occ.Month
	item.LastGeneratedMonth = &month
	item.UpdatedAt = now
	r.s.recurring[item.ID] = item
	return true, nil
}
