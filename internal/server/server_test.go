package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"example.com/finance-tracker/backend/internal/auth"
	"example.com/finance-tracker/backend/internal/config"
	"example.com/finance-tracker/backend/internal/repository/memory"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	hash, err := auth.HashJobToken("job-secret")
	if err != nil {
		t.Fatalf("hash job token: %v", err)
	}

	return config.Config{
		DataBackend: config.BackendMemory,
		Auth: config.AuthConfig{
			JWTSecret:    "test-secret",
			JWTIssuer:    "https://idp.example.com",
			JWTAudience:  "authenticated",
			JobTokenHash: hash,
		},
		RateLimit: config.RateLimitConfig{
			Backend:      config.RateLimitMemory,
			PerMinute:    600,
			Burst:        50,
			JobPerMinute: 60,
		},
		Worker: config.WorkerConfig{Interval: time.Hour, Timeout: time.Minute},
	}
}

func accessToken(t *testing.T, cfg config.Config, subject string) string {
	t.Helper()
	now := time.Now()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Auth.JWTIssuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{cfg.Auth.JWTAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

// TestServerRoutes проверяет авторизацию и основные маршруты поверх in-memory хранилища.
func TestServerRoutes(t *testing.T) {
	cfg := testConfig(t)
	e := New(cfg, nil, Deps{Stores: MemoryStores(memory.New())})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/categories", strings.NewReader(`{"name":"Food","kind":"expense"}`))
	req.Header.Set("Authorization", "Bearer "+accessToken(t, cfg, "user-1"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/categories", strings.NewReader(`{"kind":"expense"}`))
	req.Header.Set("Authorization", "Bearer "+accessToken(t, cfg, "user-1"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "name failed required validation") {
		t.Fatalf("expected json field name in validation error, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/loans/obligations", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, cfg, "user-1"))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("obligations: expected 200, got %d", rec.Code)
	}
}

// TestInternalRunRequiresJobToken проверяет защиту внутреннего эндпоинта.
func TestInternalRunRequiresJobToken(t *testing.T) {
	cfg := testConfig(t)
	e := New(cfg, nil, Deps{Stores: MemoryStores(memory.New())})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/internal/recurring/run", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without job token, got %d", rec.Code)
	}

	// Лимит внутреннего эндпоинта допускает один запрос подряд, поэтому новый сервер.
	e = New(cfg, nil, Deps{Stores: MemoryStores(memory.New())})
	req := httptest.NewRequest(http.MethodPost, "/internal/recurring/run", nil)
	req.Header.Set(auth.JobTokenHeader, "job-secret")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with job token, got %d: %s", rec.Code, rec.Body.String())
	}
}

// TestUserRateLimiter проверяет, что лимит считается по пользователю.
func TestUserRateLimiter(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.PerMinute = 1
	cfg.RateLimit.Burst = 1
	e := New(cfg, nil, Deps{Stores: MemoryStores(memory.New())})

	get := func(subject string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken(t, cfg, subject))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := get("user-1"); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := get("user-1"); code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", code)
	}
	if code := get("user-2"); code != http.StatusOK {
		t.Fatalf("other user: expected 200, got %d", code)
	}
}
