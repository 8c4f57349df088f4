package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fluxarr/fluxarr/internal/migration"
	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

func newTestAuthHandler(t *testing.T) (*AuthHandler, *sql.DB) {
	t.Helper()
	db, err := repository.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.RunMigrations(db, zerolog.Nop()))

	users := repository.NewUserRepository(db)
	return NewAuthHandler(users, "test-secret", zerolog.Nop()), db
}

func register(t *testing.T, h *AuthHandler, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"email":"` + email + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)
	return rec
}

func TestFirstRegisteredUserBecomesAdmin(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	rec := register(t, h, "owner@example.com", "password123")
	require.Equal(t, http.StatusCreated, rec.Code)

	var first models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	require.Equal(t, models.RoleAdmin, first.Role)

	rec = register(t, h, "guest@example.com", "password123")
	require.Equal(t, http.StatusCreated, rec.Code)

	var second models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	require.Equal(t, models.RoleUser, second.Role)
}

func TestRegisterRejectsShortPasswords(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	rec := register(t, h, "short@example.com", "tiny")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginIssuesUsableToken(t *testing.T) {
	h, _ := newTestAuthHandler(t)
	register(t, h, "owner@example.com", "password123")

	body := `{"email":"owner@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp["token"])

	// The token must pass the handler's own middleware.
	var hit bool
	protected := h.JWTMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	authedReq := httptest.NewRequest(http.MethodGet, "/api/shows", nil)
	authedReq.Header.Set("Authorization", "Bearer "+resp["token"])
	authedRec := httptest.NewRecorder()
	protected.ServeHTTP(authedRec, authedReq)
	require.True(t, hit)
	require.Equal(t, http.StatusOK, authedRec.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h, _ := newTestAuthHandler(t)
	register(t, h, "owner@example.com", "password123")

	body := `{"email":"owner@example.com","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
