package finance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"example.com/finance-tracker/backend/internal/repository"
)

// TestValidateAmount проверяет границы денежных сумм.
func TestValidateAmount(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"0.01", true},
		{"1500", true},
		{"99.90", true},
		{"0", false},
		{"-5", false},
		{"10.005", false},
		{"1000000000000", false},
	}

	for _, tc := range cases {
		err := ValidateAmount("amount", decimal.RequireFromString(tc.value))
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.value, err)
		}
		if !tc.ok {
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Field != "amount" || !errors.Is(err, repository.ErrInvalid) {
				t.Fatalf("%s: expected amount validation error, got %v", tc.value, err)
			}
		}
	}
}

// TestValidateDayOfMonth проверяет допустимый диапазон дня месяца.
func TestValidateDayOfMonth(t *testing.T) {
	for _, day := range []int{1, 15, 31} {
		if err := ValidateDayOfMonth(day); err != nil {
			t.Fatalf("day %d: unexpected error %v", day, err)
		}
	}
	for _, day := range []int{0, 32, -1} {
		if err := ValidateDayOfMonth(day); err == nil {
			t.Fatalf("day %d: expected error", day)
		}
	}
}
