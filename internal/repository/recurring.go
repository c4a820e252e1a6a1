package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/backend/internal/models"
)

type RecurringRepository struct {
	db *pgxpool.Pool
}

type RecurringInput struct {
	CategoryID  uuid.UUID
	Amount      decimal.Decimal
	Description string
	DayOfMonth  int
	StartDate   time.Time
	IsActive    bool
}

// NewRecurringRepository создает репозиторий шаблонов регулярных расходов.
func NewRecurringRepository(db *pgxpool.Pool) *RecurringRepository {
	return &RecurringRepository{db: db}
}

const recurringColumns = `id, user_id, category_id, amount, description, day_of_month, start_date, last_generated_month, is_active, created_at, updated_at`

func scanRecurring(row scanner) (models.RecurringItem, error) {
	var item models.RecurringItem
	err := row.Scan(&item.ID, &item.UserID, &item.CategoryID, &item.Amount, &item.Description, &item.DayOfMonth, &item.StartDate, &item.LastGeneratedMonth, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func collectRecurring(rows pgx.Rows) ([]models.RecurringItem, error) {
	defer rows.Close()

	items := make([]models.RecurringItem, 0)
	for rows.Next() {
		item, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// ListByUser возвращает шаблоны пользователя; active фильтрует по статусу.
func (r *RecurringRepository) ListByUser(ctx context.Context, userID string, active *bool) ([]models.RecurringItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recurringColumns+`
		 FROM recurring_items
		 WHERE user_id = $1 AND ($2::boolean IS NULL OR is_active = $2)
		 ORDER BY day_of_month, created_at`,
		userID, active,
	)
	if err != nil {
		return nil, err
	}

	return collectRecurring(rows)
}

// ListRecurringForGeneration возвращает активные шаблоны, начавшиеся не позже through.
func (r *RecurringRepository) ListRecurringForGeneration(ctx context.Context, userID string, through time.Time) ([]models.RecurringItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recurringColumns+`
		 FROM recurring_items
		 WHERE user_id = $1 AND is_active AND start_date <= $2
		 ORDER BY day_of_month, created_at`,
		userID, through,
	)
	if err != nil {
		return nil, err
	}

	return collectRecurring(rows)
}

// ListUsersWithActive возвращает пользователей, у которых есть активные шаблоны.
func (r *RecurringRepository) ListUsersWithActive(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT user_id FROM recurring_items WHERE is_active ORDER BY user_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]string, 0)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		users = append(users, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

// GetByID возвращает шаблон пользователя.
func (r *RecurringRepository) GetByID(ctx context.Context, userID string, itemID uuid.UUID) (models.RecurringItem, error) {
	item, err := scanRecurring(r.db.QueryRow(ctx,
		`SELECT `+recurringColumns+` FROM recurring_items WHERE id = $1 AND user_id = $2`,
		itemID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return item, ErrNotFound
		}
		return item, err
	}

	return item, nil
}

// Create добавляет шаблон. Категория должна быть расходной категорией пользователя.
func (r *RecurringRepository) Create(ctx context.Context, userID string, input RecurringInput) (models.RecurringItem, error) {
	item, err := scanRecurring(r.db.QueryRow(ctx,
		`INSERT INTO recurring_items (id, user_id, category_id, amount, description, day_of_month, start_date, is_active)
		 SELECT $1::uuid, $2::text, c.id, $4::numeric, $5::text, $6::smallint, $7::date, $8::boolean
		 FROM categories c
		 WHERE c.id = $3 AND c.user_id = $2 AND c.kind = 'expense'
		 RETURNING `+recurringColumns,
		uuid.New(), userID, input.CategoryID, input.Amount, input.Description, input.DayOfMonth, input.StartDate, input.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return item, ErrNotFound
		}
		return item, err
	}

	return item, nil
}

// Update изменяет шаблон. Маркер генерации не трогается.
func (r *RecurringRepository) Update(ctx context.Context, userID string, itemID uuid.UUID, input RecurringInput) (models.RecurringItem, error) {
	item, err := scanRecurring(r.db.QueryRow(ctx,
		`UPDATE recurring_items ri
		 SET category_id = c.id,
		     amount = $4,
		     description = $5,
		     day_of_month = $6,
		     start_date = $7,
		     is_active = $8,
		     updated_at = NOW()
		 FROM categories c
		 WHERE ri.id = $1 AND ri.user_id = $2
		   AND c.id = $3 AND c.user_id = $2 AND c.kind = 'expense'
		 RETURNING ri.id, ri.user_id, ri.category_id, ri.amount, ri.description, ri.day_of_month, ri.start_date, ri.last_generated_month, ri.is_active, ri.created_at, ri.updated_at`,
		itemID, userID, input.CategoryID, input.Amount, input.Description, input.DayOfMonth, input.StartDate, input.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return item, ErrNotFound
		}
		return item, err
	}

	return item, nil
}

// SetActive выставляет статус шаблона; nil переключает текущий.
func (r *RecurringRepository) SetActive(ctx context.Context, userID string, itemID uuid.UUID, active *bool) (models.RecurringItem, error) {
	item, err := scanRecurring(r.db.QueryRow(ctx,
		`UPDATE recurring_items
		 SET is_active = COALESCE($3::boolean, NOT is_active),
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+recurringColumns,
		itemID, userID, active,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return item, ErrNotFound
		}
		return item, err
	}

	return item, nil
}

// Delete удаляет шаблон; созданные им расходы остаются.
func (r *RecurringRepository) Delete(ctx context.Context, userID string, itemID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM recurring_items WHERE id = $1 AND user_id = $2`,
		itemID, userID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MaterializeRecurring в одной транзакции выставляет маркер месяца и создает расход.
// Условный UPDATE блокирует строку шаблона, поэтому параллельный вызов за тот же
// месяц дождется коммита и получит applied=false.
func (r *RecurringRepository) MaterializeRecurring(ctx context.Context, occ models.RecurringOccurrence) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var itemID uuid.UUID
	err = tx.QueryRow(ctx,
		`UPDATE recurring_items
		 SET last_generated_month = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND is_active
		   AND last_generated_month IS DISTINCT FROM $3::date
		 RETURNING id`,
		occ.RecurringID, occ.UserID, occ.Month,
	).Scan(&itemID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return false, err
		}

		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM recurring_items WHERE id = $1 AND user_id = $2)`,
			occ.RecurringID, occ.UserID,
		).Scan(&exists)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, ErrNotFound
		}
		return false, nil
	}

	cmd, err := tx.Exec(ctx,
		`INSERT INTO expenses (id, user_id, category_id, recurring_id, amount, description, date)
		 SELECT $1::uuid, $2::text, c.id, $4::uuid, $5::numeric, $6::text, $7::date
		 FROM categories c
		 WHERE c.id = $3 AND c.user_id = $2`,
		uuid.New(), occ.UserID, occ.CategoryID, occ.RecurringID, occ.Amount, occ.Description, occ.Date,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	if cmd.RowsAffected() == 0 {
		return false, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	return true, nil
}
