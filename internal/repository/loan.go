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

type LoanRepository struct {
	db *pgxpool.Pool
}

type LoanInput struct {
	Principal   decimal.Decimal
	AnnualRate  decimal.Decimal
	TermMonths  int
	StartDate   time.Time
	Description string
}

// NewLoanRepository создает репозиторий кредитов.
func NewLoanRepository(db *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{db: db}
}

const loanColumns = `id, user_id, principal, annual_rate, term_months, start_date, description, created_at, updated_at`

func scanLoan(row scanner) (models.Loan, error) {
	var loan models.Loan
	err := row.Scan(&loan.ID, &loan.UserID, &loan.Principal, &loan.AnnualRate, &loan.TermMonths, &loan.StartDate, &loan.Description, &loan.CreatedAt, &loan.UpdatedAt)
	return loan, err
}

// ListByUser возвращает все кредиты пользователя.
func (r *LoanRepository) ListByUser(ctx context.Context, userID string) ([]models.Loan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+loanColumns+`
		 FROM loans
		 WHERE user_id = $1
		 ORDER BY start_date, created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := make([]models.Loan, 0)
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return loans, nil
}

// GetByID возвращает кредит пользователя.
func (r *LoanRepository) GetByID(ctx context.Context, userID string, loanID uuid.UUID) (models.Loan, error) {
	loan, err := scanLoan(r.db.QueryRow(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 AND user_id = $2`,
		loanID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return loan, ErrNotFound
		}
		return loan, err
	}

	return loan, nil
}

// Create добавляет кредит.
func (r *LoanRepository) Create(ctx context.Context, userID string, input LoanInput) (models.Loan, error) {
	return scanLoan(r.db.QueryRow(ctx,
		`INSERT INTO loans (id, user_id, principal, annual_rate, term_months, start_date, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+loanColumns,
		uuid.New(), userID, input.Principal, input.AnnualRate, input.TermMonths, input.StartDate, input.Description,
	))
}

// Update изменяет кредит пользователя.
func (r *LoanRepository) Update(ctx context.Context, userID string, loanID uuid.UUID, input LoanInput) (models.Loan, error) {
	loan, err := scanLoan(r.db.QueryRow(ctx,
		`UPDATE loans
		 SET principal = $3,
		     annual_rate = $4,
		     term_months = $5,
		     start_date = $6,
		     description = $7,
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+loanColumns,
		loanID, userID, input.Principal, input.AnnualRate, input.TermMonths, input.StartDate, input.Description,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return loan, ErrNotFound
		}
		return loan, err
	}

	return loan, nil
}

// Delete удаляет кредит пользователя.
func (r *LoanRepository) Delete(ctx context.Context, userID string, loanID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM loans WHERE id = $1 AND user_id = $2`,
		loanID, userID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
