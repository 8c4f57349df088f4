package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxarr/fluxarr/internal/models"
)

func i64p(v int64) *int64 { return &v }

// requestFixtures seeds a user, a show and a Sonarr instance and returns
// their ids.
func requestFixtures(t *testing.T, db *sql.DB) (userID, showID, configID int64) {
	t.Helper()
	ctx := context.Background()

	user, err := NewUserRepository(db).Create(ctx, models.User{
		Email:        "viewer@example.com",
		PasswordHash: "x",
		Role:         models.RoleUser,
	})
	require.NoError(t, err)

	require.NoError(t, NewShowRepository(db).UpsertShows(ctx, []models.Show{testShow(100, "Requested Show")}))

	cfg, err := NewSettingsRepository(db).SaveSonarrConfig(ctx, models.ArrConfig{
		Name:   "main",
		URL:    "http://sonarr:8989",
		APIKey: "key",
	})
	require.NoError(t, err)

	return user.ID, 100, cfg.ID
}

func TestRequestCreateIsIdempotentPerUserAndShow(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()
	userID, showID, configID := requestFixtures(t, db)

	req := models.ShowRequest{
		UserID:         userID,
		ShowID:         showID,
		SonarrConfigID: configID,
		TVDBID:         i64p(555),
		Status:         models.RequestStatusAdded,
	}
	require.NoError(t, repo.Create(ctx, req))
	require.NoError(t, repo.Create(ctx, req))

	views, err := repo.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "Requested Show", views[0].ShowName)
	require.Equal(t, "main", views[0].ConfigName)
	require.Equal(t, "viewer@example.com", views[0].UserEmail)
	require.Equal(t, models.RequestStatusAdded, views[0].Status)
	require.False(t, views[0].RequestedAt.IsZero())
}

func TestRequestListJoinsMirroredLibraryState(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()
	userID, showID, configID := requestFixtures(t, db)

	require.NoError(t, NewSonarrLibraryRepository(db).Replace(ctx, configID, []models.SonarrLibraryEntry{{
		SonarrID:         7,
		TVDBID:           i64p(555),
		Title:            "Requested Show",
		Status:           strp("continuing"),
		Monitored:        true,
		EpisodeCount:     20,
		EpisodeFileCount: 12,
		SizeOnDisk:       4096,
	}}))

	require.NoError(t, repo.Create(ctx, models.ShowRequest{
		UserID:         userID,
		ShowID:         showID,
		SonarrConfigID: configID,
		TVDBID:         i64p(555),
		Status:         models.RequestStatusAdded,
	}))

	views, err := repo.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].Download)
	require.Equal(t, int64(7), views[0].Download.SonarrID)
	require.True(t, views[0].Download.Monitored)
	require.Equal(t, int64(12), views[0].Download.EpisodeFileCount)
	require.Equal(t, "continuing", *views[0].Download.Status)
}

func TestRequestListWithoutLibraryRowHasNoDownloadState(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()
	userID, showID, configID := requestFixtures(t, db)

	require.NoError(t, repo.Create(ctx, models.ShowRequest{
		UserID:         userID,
		ShowID:         showID,
		SonarrConfigID: configID,
		TVDBID:         i64p(555),
		Status:         models.RequestStatusFailed,
	}))

	views, err := repo.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Nil(t, views[0].Download)
	require.Equal(t, models.RequestStatusFailed, views[0].Status)
}

func TestRequestListScopesByUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()
	userID, showID, configID := requestFixtures(t, db)

	other, err := NewUserRepository(db).Create(ctx, models.User{
		Email:        "other@example.com",
		PasswordHash: "x",
		Role:         models.RoleUser,
	})
	require.NoError(t, err)
	require.NoError(t, NewShowRepository(db).UpsertShows(ctx, []models.Show{testShow(200, "Other Show")}))

	require.NoError(t, repo.Create(ctx, models.ShowRequest{
		UserID: userID, ShowID: showID, SonarrConfigID: configID, Status: models.RequestStatusAdded,
	}))
	require.NoError(t, repo.Create(ctx, models.ShowRequest{
		UserID: other.ID, ShowID: 200, SonarrConfigID: configID, Status: models.RequestStatusAdded,
	}))

	mine, err := repo.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, userID, mine[0].UserID)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRequestDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()
	userID, showID, configID := requestFixtures(t, db)

	require.NoError(t, repo.Create(ctx, models.ShowRequest{
		UserID: userID, ShowID: showID, SonarrConfigID: configID, Status: models.RequestStatusAdded,
	}))
	views, err := repo.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, views, 1)

	got, err := repo.Get(ctx, views[0].ID)
	require.NoError(t, err)
	require.Equal(t, userID, got.UserID)

	require.NoError(t, repo.Delete(ctx, views[0].ID))
	require.ErrorIs(t, repo.Delete(ctx, views[0].ID), ErrNotFound)

	_, err = repo.Get(ctx, views[0].ID)
	require.ErrorIs(t, err, ErrNotFound)
}
