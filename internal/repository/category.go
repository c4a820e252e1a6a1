package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/finance-tracker/backend/internal/models"
)

type scanner interface {
	Scan(dest ...any) error
}

type CategoryRepository struct {
	db *pgxpool.Pool
}

// NewCategoryRepository создает репозиторий категорий.
func NewCategoryRepository(db *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, user_id, name, kind, color, created_at`

func scanCategory(row scanner) (models.Category, error) {
	var category models.Category
	err := row.Scan(&category.ID, &category.UserID, &category.Name, &category.Kind, &category.Color, &category.CreatedAt)
	return category, err
}

// ListByUser возвращает категории пользователя, опционально одного вида.
func (r *CategoryRepository) ListByUser(ctx context.Context, userID string, kind *models.CategoryKind) ([]models.Category, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+categoryColumns+`
		 FROM categories
		 WHERE user_id = $1 AND ($2::text IS NULL OR kind = $2)
		 ORDER BY kind, name`,
		userID, kind,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

// Create добавляет категорию. Повтор имени в пределах вида дает ErrConflict.
func (r *CategoryRepository) Create(ctx context.Context, userID string, name string, kind models.CategoryKind, color *string) (models.Category, error) {
	category, err := scanCategory(r.db.QueryRow(ctx,
		`INSERT INTO categories (id, user_id, name, kind, color)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+categoryColumns,
		uuid.New(), userID, name, kind, color,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return category, ErrConflict
		}
		return category, err
	}

	return category, nil
}

// Update меняет имя и цвет категории пользователя.
func (r *CategoryRepository) Update(ctx context.Context, userID string, categoryID uuid.UUID, name string, color *string) (models.Category, error) {
	category, err := scanCategory(r.db.QueryRow(ctx,
		`UPDATE categories
		 SET name = $3, color = $4
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+categoryColumns,
		categoryID, userID, name, color,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return category, ErrNotFound
		}
		if isUniqueViolation(err) {
			return category, ErrConflict
		}
		return category, err
	}

	return category, nil
}

// Delete удаляет категорию, если на нее не ссылаются расходы и шаблоны.
func (r *CategoryRepository) Delete(ctx context.Context, userID string, categoryID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`,
		categoryID, userID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInUse
		}
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
