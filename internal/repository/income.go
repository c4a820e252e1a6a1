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

type IncomeRepository struct {
	db *pgxpool.Pool
}

type IncomeInput struct {
	CategoryID  *uuid.UUID
	Amount      decimal.Decimal
	Source      string
	Description string
	Date        time.Time
}

// NewIncomeRepository создает репозиторий доходов.
func NewIncomeRepository(db *pgxpool.Pool) *IncomeRepository {
	return &IncomeRepository{db: db}
}

const incomeColumns = `id, user_id, category_id, amount, source, description, date, created_at, updated_at`

func scanIncome(row scanner) (models.Income, error) {
	var income models.Income
	err := row.Scan(&income.ID, &income.UserID, &income.CategoryID, &income.Amount, &income.Source, &income.Description, &income.Date, &income.CreatedAt, &income.UpdatedAt)
	return income, err
}

// ListByUser возвращает доходы пользователя за период [from, to).
func (r *IncomeRepository) ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]models.Income, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+incomeColumns+`
		 FROM incomes
		 WHERE user_id = $1
		   AND ($2::date IS NULL OR date >= $2)
		   AND ($3::date IS NULL OR date < $3)
		 ORDER BY date DESC, created_at DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incomes := make([]models.Income, 0)
	for rows.Next() {
		income, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		incomes = append(incomes, income)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return incomes, nil
}

// Create добавляет доход. Категория, если указана, должна принадлежать пользователю.
func (r *IncomeRepository) Create(ctx context.Context, userID string, input IncomeInput) (models.Income, error) {
	income, err := scanIncome(r.db.QueryRow(ctx,
		`INSERT INTO incomes (id, user_id, category_id, amount, source, description, date)
		 SELECT $1::uuid, $2::text, $3::uuid, $4::numeric, $5::text, $6::text, $7::date
		 WHERE $3::uuid IS NULL OR EXISTS (
			SELECT 1 FROM categories WHERE id = $3 AND user_id = $2 AND kind = 'income'
		 )
		 RETURNING `+incomeColumns,
		uuid.New(), userID, input.CategoryID, input.Amount, input.Source, input.Description, input.Date,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return income, ErrNotFound
		}
		return income, err
	}

	return income, nil
}

// Update изменяет доход пользователя.
func (r *IncomeRepository) Update(ctx context.Context, userID string, incomeID uuid.UUID, input IncomeInput) (models.Income, error) {
	income, err := scanIncome(r.db.QueryRow(ctx,
		`UPDATE incomes
		 SET category_id = $3,
		     amount = $4,
		     source = $5,
		     description = $6,
		     date = $7,
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		   AND ($3::uuid IS NULL OR EXISTS (
			SELECT 1 FROM categories WHERE id = $3 AND user_id = $2 AND kind = 'income'
		   ))
		 RETURNING `+incomeColumns,
		incomeID, userID, input.CategoryID, input.Amount, input.Source, input.Description, input.Date,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return income, ErrNotFound
		}
		return income, err
	}

	return income, nil
}

// Delete удаляет доход пользователя.
func (r *IncomeRepository) Delete(ctx context.Context, userID string, incomeID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM incomes WHERE id = $1 AND user_id = $2`,
		incomeID, userID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
