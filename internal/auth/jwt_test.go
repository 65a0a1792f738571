package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/verifatura/saft-validator-service/internal/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareDisabled(t *testing.T) {
	require.NoError(t, Init(&models.AuthConfig{Enabled: false}))
	assert.False(t, Enabled())

	req := httptest.NewRequest(http.MethodPost, "/api/validate-saft", nil)
	rec := httptest.NewRecorder()
	JWTMiddleware(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitRequiresSecret(t *testing.T) {
	err := Init(&models.AuthConfig{Enabled: true})
	assert.Error(t, err)
}

func TestLoginAndMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("segredo"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, Init(&models.AuthConfig{
		Enabled: true,
		Secret:  "test-secret",
		Users:   []models.AuthUser{{Name: "ana", PasswordHash: string(hash)}},
	}))
	defer func() {
		require.NoError(t, Init(&models.AuthConfig{Enabled: false}))
	}()

	t.Run("wrong password", func(t *testing.T) {
		body, _ := json.Marshal(LoginRequest{Username: "ana", Password: "errada"})
		req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		LoginHandler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		body, _ := json.Marshal(LoginRequest{Username: "rui", Password: "segredo"})
		req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		LoginHandler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("login then authorized request", func(t *testing.T) {
		body, _ := json.Marshal(LoginRequest{Username: "ana", Password: "segredo"})
		req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		LoginHandler(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Token)
		assert.Equal(t, "ana", resp.Username)

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := GetClaimsFromContext(r.Context())
			require.NoError(t, err)
			assert.Equal(t, "ana", claims.Username)
			w.WriteHeader(http.StatusOK)
		})
		protected := httptest.NewRequest(http.MethodPost, "/api/validate-saft", nil)
		protected.Header.Set("Authorization", "Bearer "+resp.Token)
		rec = httptest.NewRecorder()
		JWTMiddleware(next).ServeHTTP(rec, protected)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/validate-saft", nil)
		rec := httptest.NewRecorder()
		JWTMiddleware(okHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/validate-saft", nil)
		req.Header.Set("Authorization", "Bearer abc.def.ghi")
		rec := httptest.NewRecorder()
		JWTMiddleware(okHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("open paths stay open", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		JWTMiddleware(okHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
