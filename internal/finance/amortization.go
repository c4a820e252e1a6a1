package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"example.com/finance-tracker/backend/internal/models"
)

const (
	maxTermMonths = 600
	// rateScale соответствует колонке numeric(7,6).
	rateScale = 6
)

var (
	monthsPerYear = decimal.NewFromInt(12)
	one           = decimal.NewFromInt(1)
)

// ValidateLoanTerms проверяет параметры кредита до любых расчетов.
func ValidateLoanTerms(principal, annualRate decimal.Decimal, termMonths int) error {
	if err := ValidateAmount("principal", principal); err != nil {
		return err
	}
	if annualRate.IsNegative() || annualRate.GreaterThan(one) {
		return invalid("annual_rate", "must be between 0 and 1")
	}
	if !annualRate.Equal(annualRate.Round(rateScale)) {
		return invalid("annual_rate", "must have at most 6 decimal places")
	}
	if termMonths <= 0 || termMonths > maxTermMonths {
		return invalid("term_months", "must be between 1 and 600")
	}
	return nil
}

// MonthlyPayment считает аннуитетный платеж: P * r(1+r)^n / ((1+r)^n - 1), r = annualRate/12.
// При нулевой ставке возвращает ровно principal/termMonths.
func MonthlyPayment(principal, annualRate decimal.Decimal, termMonths int) decimal.Decimal {
	if termMonths <= 0 {
		return decimal.Zero
	}

	n := decimal.NewFromInt(int64(termMonths))
	if annualRate.IsZero() {
		return principal.Div(n)
	}

	r := annualRate.Div(monthsPerYear)
	factor := one.Add(r).Pow(n)

	return principal.Mul(r).Mul(factor).Div(factor.Sub(one)).Round(2)
}

// MonthsElapsed возвращает разницу в календарных месяцах, день месяца не учитывается.
func MonthsElapsed(start, now time.Time) int {
	start, now = start.UTC(), now.UTC()
	return (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
}

// IsActive сообщает, идут ли еще платежи по кредиту на дату now.
func IsActive(loan models.Loan, now time.Time) bool {
	return MonthsElapsed(loan.StartDate, now) < loan.TermMonths
}

// RemainingBalance оценивает остаток долга как principal - monthsElapsed*payment, не ниже нуля.
func RemainingBalance(loan models.Loan, now time.Time) decimal.Decimal {
	elapsed := MonthsElapsed(loan.StartDate, now)
	if elapsed <= 0 {
		return loan.Principal
	}

	payment := MonthlyPayment(loan.Principal, loan.AnnualRate, loan.TermMonths)
	remaining := loan.Principal.Sub(payment.Mul(decimal.NewFromInt(int64(elapsed))))
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// TotalObligations суммирует ежемесячные платежи по активным кредитам.
func TotalObligations(loans []models.Loan, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, loan := range loans {
		if !IsActive(loan, now) {
			continue
		}
		total = total.Add(MonthlyPayment(loan.Principal, loan.AnnualRate, loan.TermMonths))
	}
	return total
}

type ScheduleEntry struct {
	Period           int             `json:"period"`
	DueDate          time.Time       `json:"due_date"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	Total            decimal.Decimal `json:"total"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// Schedule строит график платежей. Первый платеж через месяц после StartDate,
// последний период закрывает остаток с учетом округлений.
func Schedule(loan models.Loan) []ScheduleEntry {
	if loan.TermMonths <= 0 || !loan.Principal.IsPositive() {
		return nil
	}

	payment := MonthlyPayment(loan.Principal, loan.AnnualRate, loan.TermMonths)
	r := loan.AnnualRate.Div(monthsPerYear)
	remaining := loan.Principal

	schedule := make([]ScheduleEntry, 0, loan.TermMonths)
	for period := 1; period <= loan.TermMonths; period++ {
		interest := remaining.Mul(r).Round(2)
		principalPart := payment.Sub(interest)

		if period == loan.TermMonths || principalPart.GreaterThan(remaining) {
			principalPart = remaining
		}

		remaining = remaining.Sub(principalPart)

		schedule = append(schedule, ScheduleEntry{
			Period:           period,
			DueDate:          loan.StartDate.AddDate(0, period, 0),
			Principal:        principalPart.Round(2),
			Interest:         interest,
			Total:            principalPart.Add(interest).Round(2),
			RemainingBalance: remaining.Round(2),
		})

		if remaining.IsZero() {
			break
		}
	}

	return schedule
}
