package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/backend/internal/finance"
	"example.com/finance-tracker/backend/internal/repository"
)

const dateLayout = "2006-01-02"

var errInvalidPayload = errors.New("invalid payload")

// bindOptional разбирает тело, которое можно не передавать: пустое тело оставляет значения по умолчанию.
func bindOptional(c echo.Context, i interface{}) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	// Пустое chunked-тело echo возвращает как HTTPError поверх io.EOF.
	if err := c.Bind(i); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
}

func conflict(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, map[string]string{"error": message})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": message})
}

func serverError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

// validationMessage называет первое поле, не прошедшее проверку тегов.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Sprintf("%s failed %s validation", fieldErrs[0].Field(), fieldErrs[0].Tag())
	}
	return "validation failed"
}

// storeError переводит ошибки сервисов и хранилищ в HTTP-ответ.
func storeError(c echo.Context, err error, notFoundMessage string) error {
	var validationErr *finance.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return badRequest(c, validationErr.Error())
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, notFoundMessage)
	case errors.Is(err, repository.ErrConflict):
		return conflict(c, "already exists")
	case errors.Is(err, repository.ErrInUse):
		return conflict(c, "referenced by other records")
	case errors.Is(err, repository.ErrInvalid):
		return badRequest(c, "invalid input")
	}

	slog.ErrorContext(c.Request().Context(), "request failed",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return serverError(c)
}

func parseDate(field, value string) (time.Time, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, errors.New(field + " must be a date in YYYY-MM-DD format")
	}
	return date, nil
}

// parsePeriod разбирает необязательные границы from/to (включительно).
// Возвращаемый to указывает на следующий день, чтобы фильтр был полуоткрытым.
func parsePeriod(from, to string) (*time.Time, *time.Time, error) {
	var start, end *time.Time

	if strings.TrimSpace(from) != "" {
		parsed, err := parseDate("from", from)
		if err != nil {
			return nil, nil, err
		}
		start = &parsed
	}

	if strings.TrimSpace(to) != "" {
		parsed, err := parseDate("to", to)
		if err != nil {
			return nil, nil, err
		}
		exclusive := parsed.AddDate(0, 0, 1)
		end = &exclusive
	}

	if start != nil && end != nil && !end.After(*start) {
		return nil, nil, errors.New("to must not be before from")
	}

	return start, end, nil
}

// parseMonthQuery читает необязательные параметры year и month.
func parseMonthQuery(c echo.Context) (*int, *int, error) {
	year, err := optionalInt(c.QueryParam("year"), "year")
	if err != nil {
		return nil, nil, err
	}
	month, err := optionalInt(c.QueryParam("month"), "month")
	if err != nil {
		return nil, nil, err
	}
	return year, month, nil
}

func optionalInt(value, field string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil, errors.New(field + " must be an integer")
	}
	return &parsed, nil
}

func optionalBool(value, field string) (*bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, errors.New(field + " must be true or false")
	}
	return &parsed, nil
}

func validateHexColor(value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if !isHexColor(trimmed) {
		return nil, errors.New("color must be a hex color")
	}

	return &trimmed, nil
}

func isHexColor(value string) bool {
	if len(value) != 7 || value[0] != '#' {
		return false
	}

	for i := 1; i < len(value); i++ {
		c := value[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}

	return true
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}
