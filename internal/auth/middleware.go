package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	ContextUserIDKey = "user_id"

	// QueryTokenParam используется EventSource, который не умеет передавать заголовки.
	QueryTokenParam = "access_token"
)

// JWTMiddleware проверяет access-токен и сохраняет user_id в контексте.
func JWTMiddleware(verifier *Verifier) echo.MiddlewareFunc {
	return jwtMiddleware(verifier, false)
}

// JWTQueryMiddleware дополнительно принимает токен из query-параметра access_token.
func JWTQueryMiddleware(verifier *Verifier) echo.MiddlewareFunc {
	return jwtMiddleware(verifier, true)
}

func jwtMiddleware(verifier *Verifier, allowQuery bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c, allowQuery)
			if err != nil {
				return err
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ContextUserIDKey, claims.Subject)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context, allowQuery bool) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if allowQuery {
			if token := strings.TrimSpace(c.QueryParam(QueryTokenParam)); token != "" {
				return token, nil
			}
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}

	return tokenString, nil
}

// UserIDFromContext извлекает идентификатор пользователя из контекста.
func UserIDFromContext(c echo.Context) (string, bool) {
	userID, ok := c.Get(ContextUserIDKey).(string)
	return userID, ok && userID != ""
}
