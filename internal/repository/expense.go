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

type ExpenseRepository struct {
	db *pgxpool.Pool
}

type ExpenseInput struct {
	CategoryID  uuid.UUID
	Amount      decimal.Decimal
	Description string
	Date        time.Time
}

// ExpenseFilter ограничивает выборку; To не включается.
type ExpenseFilter struct {
	From       *time.Time
	To         *time.Time
	CategoryID *uuid.UUID
}

// NewExpenseRepository создает репозиторий расходов.
func NewExpenseRepository(db *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseColumns = `id, user_id, category_id, amount, description, date, recurring_id, created_at, updated_at`

func scanExpense(row scanner) (models.Expense, error) {
	var expense models.Expense
	err := row.Scan(&expense.ID, &expense.UserID, &expense.CategoryID, &expense.Amount, &expense.Description, &expense.Date, &expense.RecurringID, &expense.CreatedAt, &expense.UpdatedAt)
	return expense, err
}

// ListByUser возвращает расходы пользователя по фильтру, новые первыми.
func (r *ExpenseRepository) ListByUser(ctx context.Context, userID string, filter ExpenseFilter) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses
		 WHERE user_id = $1
		   AND ($2::date IS NULL OR date >= $2)
		   AND ($3::date IS NULL OR date < $3)
		   AND ($4::uuid IS NULL OR category_id = $4)
		 ORDER BY date DESC, created_at DESC`,
		userID, filter.From, filter.To, filter.CategoryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]models.Expense, 0)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return expenses, nil
}

// Create добавляет расход. Чужая или несуществующая категория дает ErrNotFound.
func (r *ExpenseRepository) Create(ctx context.Context, userID string, input ExpenseInput) (models.Expense, error) {
	expense, err := scanExpense(r.db.QueryRow(ctx,
		`INSERT INTO expenses (id, user_id, category_id, amount, description, date)
		 SELECT $1::uuid, $2::text, c.id, $4::numeric, $5::text, $6::date
		 FROM categories c
		 WHERE c.id = $3 AND c.user_id = $2 AND c.kind = 'expense'
		 RETURNING `+expenseColumns,
		uuid.New(), userID, input.CategoryID, input.Amount, input.Description, input.Date,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense, ErrNotFound
		}
		return expense, err
	}

	return expense, nil
}

// Update изменяет расход пользователя.
func (r *ExpenseRepository) Update(ctx context.Context, userID string, expenseID uuid.UUID, input ExpenseInput) (models.Expense, error) {
	expense, err := scanExpense(r.db.QueryRow(ctx,
		`UPDATE expenses e
		 SET category_id = c.id,
		     amount = $4,
		     description = $5,
		     date = $6,
		     recurring_id = CASE
		         WHEN date_trunc('month', $6::date) = date_trunc('month', e.date) THEN e.recurring_id
		     END,
		     updated_at = NOW()
		 FROM categories c
		 WHERE e.id = $1 AND e.user_id = $2
		   AND c.id = $3 AND c.user_id = $2 AND c.kind = 'expense'
		 RETURNING e.id, e.user_id, e.category_id, e.amount, e.description, e.date, e.recurring_id, e.created_at, e.updated_at`,
		expenseID, userID, input.CategoryID, input.Amount, input.Description, input.Date,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense, ErrNotFound
		}
		if isUniqueViolation(err) {
			return expense, ErrConflict
		}
		return expense, err
	}

	return expense, nil
}

// Delete удаляет расход пользователя.
func (r *ExpenseRepository) Delete(ctx context.Context, userID string, expenseID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM expenses WHERE id = $1 AND user_id = $2`,
		expenseID, userID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
