package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/finance-tracker/backend/internal/models"
)

type StatsRepository struct {
	db *pgxpool.Pool
}

// NewStatsRepository создает репозиторий агрегатов.
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// MonthTotals возвращает сумму доходов и расходов за месяц, начинающийся с month.
func (r *StatsRepository) MonthTotals(ctx context.Context, userID string, month time.Time) (models.MonthTotals, error) {
	var totals models.MonthTotals

	err := r.db.QueryRow(ctx,
		`SELECT
		    (SELECT COALESCE(SUM(amount), 0) FROM incomes
		     WHERE user_id = $1 AND date >= $2 AND date < ($2::date + INTERVAL '1 month')),
		    (SELECT COALESCE(SUM(amount), 0) FROM expenses
		     WHERE user_id = $1 AND date >= $2 AND date < ($2::date + INTERVAL '1 month'))`,
		userID, month,
	).Scan(&totals.Income, &totals.Expenses)
	if err != nil {
		return totals, err
	}

	return totals, nil
}

// SpendingByCategory возвращает расходы месяца по категориям, крупные первыми.
func (r *StatsRepository) SpendingByCategory(ctx context.Context, userID string, month time.Time) ([]models.CategoryTotal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.name, COALESCE(SUM(e.amount), 0) AS total
		 FROM expenses e
		 JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = $1 AND e.date >= $2 AND e.date < ($2::date + INTERVAL '1 month')
		 GROUP BY c.id, c.name
		 ORDER BY total DESC, c.name`,
		userID, month,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]models.CategoryTotal, 0)
	for rows.Next() {
		var row models.CategoryTotal
		if err := rows.Scan(&row.CategoryID, &row.Name, &row.Total); err != nil {
			return nil, err
		}
		totals = append(totals, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return totals, nil
}

// MonthlyComparison возвращает агрегаты за months месяцев, заканчивая месяцем until.
func (r *StatsRepository) MonthlyComparison(ctx context.Context, userID string, until time.Time, months int) ([]models.MonthlyTotals, error) {
	if months <= 0 {
		return nil, ErrInvalid
	}

	rows, err := r.db.Query(ctx,
		`WITH months AS (
			SELECT generate_series(
				date_trunc('month', $2::date) - make_interval(months => $3 - 1),
				date_trunc('month', $2::date),
				INTERVAL '1 month'
			)::date AS month
		)
		SELECT m.month,
		       COALESCE((SELECT SUM(amount) FROM incomes i
		                 WHERE i.user_id = $1 AND i.date >= m.month AND i.date < m.month + INTERVAL '1 month'), 0),
		       COALESCE((SELECT SUM(amount) FROM expenses e
		                 WHERE e.user_id = $1 AND e.date >= m.month AND e.date < m.month + INTERVAL '1 month'), 0)
		FROM months m
		ORDER BY m.month`,
		userID, until, months,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.MonthlyTotals, 0, months)
	for rows.Next() {
		var row models.MonthlyTotals
		if err := rows.Scan(&row.Month, &row.Income, &row.Expenses); err != nil {
			return nil, err
		}
		items = append(items, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
