package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fluxarr/fluxarr/internal/authz"
	"github.com/fluxarr/fluxarr/internal/migration"
	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

func newTestRequestHandler(t *testing.T) (*RequestHandler, repository.RequestRepository, int64, int64) {
	t.Helper()
	db, err := repository.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.RunMigrations(db, zerolog.Nop()))
	ctx := context.Background()

	users := repository.NewUserRepository(db)
	owner, err := users.Create(ctx, models.User{Email: "owner@example.com", PasswordHash: "x", Role: models.RoleUser})
	require.NoError(t, err)
	stranger, err := users.Create(ctx, models.User{Email: "stranger@example.com", PasswordHash: "x", Role: models.RoleUser})
	require.NoError(t, err)

	require.NoError(t, repository.NewShowRepository(db).UpsertShows(ctx, []models.Show{
		{ID: 1, Name: "Tracked Show", Type: "Scripted", Status: "Running"},
	}))
	cfg, err := repository.NewSettingsRepository(db).SaveSonarrConfig(ctx, models.ArrConfig{
		Name: "main", URL: "http://sonarr:8989", APIKey: "key",
	})
	require.NoError(t, err)

	requests := repository.NewRequestRepository(db)
	require.NoError(t, requests.Create(ctx, models.ShowRequest{
		UserID: owner.ID, ShowID: 1, SonarrConfigID: cfg.ID, Status: models.RequestStatusAdded,
	}))

	return NewRequestHandler(requests, zerolog.Nop()), requests, owner.ID, stranger.ID
}

func identified(req *http.Request, userID int64, role models.UserRole) *http.Request {
	return req.WithContext(authz.WithIdentity(req.Context(), userID, role))
}

func TestListRequestsScopesToCaller(t *testing.T) {
	h, _, ownerID, strangerID := newTestRequestHandler(t)

	req := identified(httptest.NewRequest(http.MethodGet, "/api/requests", nil), ownerID, models.RoleUser)
	rec := httptest.NewRecorder()
	h.ListRequests(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var views []models.ShowRequestView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
	require.Len(t, views, 1)
	require.Equal(t, "Tracked Show", views[0].ShowName)

	// Another user sees an empty list, not the owner's requests.
	req = identified(httptest.NewRequest(http.MethodGet, "/api/requests", nil), strangerID, models.RoleUser)
	rec = httptest.NewRecorder()
	h.ListRequests(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
	require.Empty(t, views)
}

func TestDeleteRequestEnforcesOwnership(t *testing.T) {
	h, requests, ownerID, strangerID := newTestRequestHandler(t)

	views, err := requests.ListForUser(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	id := strconv.FormatInt(views[0].ID, 10)

	del := func(userID int64, role models.UserRole) *httptest.ResponseRecorder {
		req := identified(httptest.NewRequest(http.MethodDelete, "/api/requests/"+id, nil), userID, role)
		req = mux.SetURLVars(req, map[string]string{"requestID": id})
		rec := httptest.NewRecorder()
		h.DeleteRequest(rec, req)
		return rec
	}

	require.Equal(t, http.StatusForbidden, del(strangerID, models.RoleUser).Code)
	require.Equal(t, http.StatusNoContent, del(ownerID, models.RoleUser).Code)
	require.Equal(t, http.StatusNotFound, del(ownerID, models.RoleUser).Code)
}
