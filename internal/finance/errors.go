package finance

import (
	"fmt"

	"example.com/finance-tracker/backend/internal/repository"
)

// ValidationError описывает некорректный входной параметр.
// Сопоставляется с repository.ErrInvalid через errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return repository.ErrInvalid
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
