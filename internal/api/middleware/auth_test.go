package middleware

import (
	"bank-reports/internal/config"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func signedToken(t *testing.T, secret string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"username": "reporter",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthMiddlewareDisabledPassesThrough(t *testing.T) {
	cfg := config.AuthConfig{Enabled: false}
	handler := AuthMiddleware(cfg, testLogger)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/top-customers", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, JWTSecret: "secret"}
	handler := AuthMiddleware(cfg, testLogger)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/top-customers", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, JWTSecret: "secret"}
	handler := AuthMiddleware(cfg, testLogger)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/reports/top-customers", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "other-secret"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, JWTSecret: "secret"}
	handler := AuthMiddleware(cfg, testLogger)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/reports/top-customers", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "secret"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
