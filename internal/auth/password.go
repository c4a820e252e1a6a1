package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const JobTokenHeader = "X-Job-Token"

// HashJobToken хэширует сервисный токен планировщика через bcrypt.
func HashJobToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CompareJobToken сравнивает bcrypt-хэш с токеном.
func CompareJobToken(hash, token string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
}

// JobTokenMiddleware пропускает только запросы с валидным заголовком X-Job-Token.
// Если хэш не задан, внутренние эндпоинты закрыты.
func JobTokenMiddleware(hash string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if hash == "" {
				return echo.NewHTTPError(http.StatusForbidden, "job endpoints are disabled")
			}

			token := strings.TrimSpace(c.Request().Header.Get(JobTokenHeader))
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing job token")
			}

			if err := CompareJobToken(hash, token); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid job token")
			}

			return next(c)
		}
	}
}
