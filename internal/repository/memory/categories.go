package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/repository"
)

type Categories struct {
	s *Store
}

func (c *Categories) ListByUser(_ context.Context, userID string, kind *models.CategoryKind) ([]models.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	out := make([]models.Category, 0)
	for _, category := range c.s.categories {
		if category.UserID != userID || (kind != nil && category.Kind != *kind) {
			continue
		}
		out = append(out, category)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (c *Categories) Create(_ context.Context, userID string, name string, kind models.CategoryKind, color *string) (models.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if c.nameTaken(userID, name, kind, uuid.Nil) {
		return models.Category{}, repository.ErrConflict
	}

	category := models.Category{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Kind:      kind,
		Color:     color,
		CreatedAt: c.s.timestamp(),
	}
	c.s.categories[category.ID] = category
	return category, nil
}

func (c *Categories) Update(_ context.Context, userID string, categoryID uuid.UUID, name string, color *string) (models.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	category, ok := c.s.categories[categoryID]
	if !ok || category.UserID != userID {
		return models.Category{}, repository.ErrNotFound
	}
	if c.nameTaken(userID, name, category.Kind, categoryID) {
		return models.Category{}, repository.ErrConflict
	}

	category.Name = name
	category.Color = color
	c.s.categories[categoryID] = category
	return category, nil
}

func (c *Categories) Delete(_ context.Context, userID string, categoryID uuid.UUID) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	category, ok := c.s.categories[categoryID]
	if !ok || category.UserID != userID {
		return repository.ErrNotFound
	}

	for _, expense := range c.s.expenses {
		if expense.CategoryID == categoryID {
			return repository.ErrInUse
		}
	}
	for _, item := range c.s.recurring {
		if item.CategoryID == categoryID {
			return repository.ErrInUse
		}
	}
	for id, income := range c.s.incomes {
		if income.CategoryID != nil && *income.CategoryID == categoryID {
			income.CategoryID = nil
			c.s.incomes[id] = income
		}
	}

	delete(c.s.categories, categoryID)
	return nil
}

func (c *Categories) nameTaken(userID, name string, kind models.CategoryKind, except uuid.UUID) bool {
	for id, category := range c.s.categories {
		if id != except && category.UserID == userID && category.Kind == kind && category.Name == name {
			return true
		}
	}
	return false
}
