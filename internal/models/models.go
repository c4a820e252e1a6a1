package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CategoryKind string

type Severity string

const (
	CategoryKindExpense CategoryKind = "expense"
	CategoryKindIncome  CategoryKind = "income"

	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// DefaultRecurringDescription подставляется, когда у шаблона нет описания.
const DefaultRecurringDescription = "Recurring expense"

type Category struct {
	ID        uuid.UUID    `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"name"`
	Kind      CategoryKind `json:"kind"`
	Color     *string      `json:"color,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type Expense struct {
	ID          uuid.UUID       `json:"id"`
	UserID      string          `json:"user_id"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	RecurringID *uuid.UUID      `json:"recurring_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Income struct {
	ID          uuid.UUID       `json:"id"`
	UserID      string          `json:"user_id"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Source      string          `json:"source"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Loan struct {
	ID          uuid.UUID       `json:"id"`
	UserID      string          `json:"user_id"`
	Principal   decimal.Decimal `json:"principal"`
	AnnualRate  decimal.Decimal `json:"annual_rate"`
	TermMonths  int             `json:"term_months"`
	StartDate   time.Time       `json:"start_date"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RecurringItem описывает шаблон ежемесячного расхода.
// LastGeneratedMonth всегда хранит первое число месяца последней генерации.
type RecurringItem struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             string          `json:"user_id"`
	CategoryID         uuid.UUID       `json:"category_id"`
	Amount             decimal.Decimal `json:"amount"`
	Description        string          `json:"description"`
	DayOfMonth         int             `json:"day_of_month"`
	StartDate          time.Time       `json:"start_date"`
	LastGeneratedMonth *time.Time      `json:"last_generated_month,omitempty"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type InsightAction struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

type Insight struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
	Action   *InsightAction `json:"action,omitempty"`
}

// MonthTotals содержит агрегаты доходов и расходов за месяц.
type MonthTotals struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

type CategoryTotal struct {
	CategoryID uuid.UUID       `json:"category_id"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
}

// RecurringOccurrence описывает расход, который шаблон порождает в конкретном месяце.
type RecurringOccurrence struct {
	UserID      string
	RecurringID uuid.UUID
	CategoryID  uuid.UUID
	Amount      decimal.Decimal
	Description string
	Date        time.Time
	Month       time.Time
}

// MonthlyTotals хранит агрегаты одного месяца для динамики.
type MonthlyTotals struct {
	Month    time.Time       `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}
