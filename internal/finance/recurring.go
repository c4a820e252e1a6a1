package finance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/repository"
)

// RecurringStore нужен генератору от слоя хранения.
//
// MaterializeRecurring обязан атомарно выставить маркер месяца (только если он
// отличается от occ.Month) и вставить расход. applied=false означает, что маркер уже
// стоял. ErrNotFound означает, что шаблон или категория не принадлежат пользователю.
type RecurringStore interface {
	ListRecurringForGeneration(ctx context.Context, userID string, through time.Time) ([]models.RecurringItem, error)
	MaterializeRecurring(ctx context.Context, occ models.RecurringOccurrence) (bool, error)
}

type ItemFailure struct {
	RecurringID uuid.UUID `json:"recurring_id"`
	Reason      string    `json:"reason"`
}

type GenerateResult struct {
	Month          time.Time     `json:"-"`
	GeneratedCount int           `json:"generated_count"`
	SkippedCount   int           `json:"skipped_count"`
	Failed         []ItemFailure `json:"failed"`
}

type Generator struct {
	store  RecurringStore
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator создает генератор расходов из шаблонов.
func NewGenerator(store RecurringStore, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{store: store, logger: logger, now: time.Now}
}

// Generate создает расходы за месяц по всем активным шаблонам пользователя.
// Повторный вызов за тот же месяц ничего не создает.
func (g *Generator) Generate(ctx context.Context, userID string, year, month *int) (GenerateResult, error) {
	if strings.TrimSpace(userID) == "" {
		return GenerateResult{}, invalid("user_id", "is required")
	}

	monthStart, err := ResolveMonth(year, month, g.now())
	if err != nil {
		return GenerateResult{}, err
	}

	lastDay := LastDayOfMonth(monthStart.Year(), monthStart.Month())
	result := GenerateResult{Month: monthStart, Failed: []ItemFailure{}}

	items, err := g.store.ListRecurringForGeneration(ctx, userID, lastDay)
	if err != nil {
		return result, fmt.Errorf("list recurring items: %w", err)
	}

	for _, item := range items {
		if !item.IsActive || dateOnly(item.StartDate).After(lastDay) {
			continue
		}

		if item.LastGeneratedMonth != nil && dateOnly(*item.LastGeneratedMonth).Equal(monthStart) {
			result.SkippedCount++
			continue
		}

		applied, err := g.store.MaterializeRecurring(ctx, models.RecurringOccurrence{
			UserID:      userID,
			RecurringID: item.ID,
			CategoryID:  item.CategoryID,
			Amount:      item.Amount,
			Description: recurringDescription(item.Description),
			Date:        occurrenceDate(monthStart, item.DayOfMonth),
			Month:       monthStart,
		})
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				g.logger.WarnContext(ctx, "recurring item generation failed",
					slog.String("user_id", userID),
					slog.String("recurring_id", item.ID.String()),
					slog.String("error", err.Error()),
				)
				result.Failed = append(result.Failed, ItemFailure{RecurringID: item.ID, Reason: "category or recurring item not found"})
				continue
			}
			return result, fmt.Errorf("materialize recurring item %s: %w", item.ID, err)
		}

		if applied {
			result.GeneratedCount++
		} else {
			result.SkippedCount++
		}
	}

	return result, nil
}

// occurrenceDate ставит day в пределах месяца: 31 в феврале превращается в последний день.
func occurrenceDate(monthStart time.Time, day int) time.Time {
	lastDay := LastDayOfMonth(monthStart.Year(), monthStart.Month())
	if day < 1 {
		day = 1
	}
	if day > lastDay.Day() {
		return lastDay
	}
	return time.Date(monthStart.Year(), monthStart.Month(), day, 0, 0, 0, 0, time.UTC)
}

func recurringDescription(description string) string {
	if trimmed := strings.TrimSpace(description); trimmed != "" {
		return trimmed
	}
	return models.DefaultRecurringDescription
}
