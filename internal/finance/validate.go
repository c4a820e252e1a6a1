package finance

import "github.com/shopspring/decimal"

// maxAmount соответствует колонкам numeric(14,2).
var maxAmount = decimal.New(1, 12)

// ValidateAmount проверяет денежную сумму: больше нуля, не более двух знаков после запятой.
func ValidateAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid(field, "must be greater than 0")
	}
	if !amount.Equal(amount.Round(2)) {
		return invalid(field, "must have at most 2 decimal places")
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return invalid(field, "is too large")
	}
	return nil
}

func ValidateDayOfMonth(day int) error {
	if day < 1 || day > 31 {
		return invalid("day_of_month", "must be between 1 and 31")
	}
	return nil
}
