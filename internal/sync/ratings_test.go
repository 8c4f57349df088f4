package sync

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fluxarr/fluxarr/internal/catalog/omdb"
	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

func TestCalculateBatchSize(t *testing.T) {
	tests := []struct {
		name     string
		quota    int
		interval time.Duration
		want     int
	}{
		{"frequent runs split the quota", 100000, 15 * time.Minute, 937},
		{"single daily run", 100, 24 * time.Hour, 90},
		{"tiny quota clamps to floor", 10, 15 * time.Minute, 10},
		{"huge quota clamps to ceiling", 10000000, 24 * time.Hour, 10000},
		{"interval above a day counts as one run", 100, 48 * time.Hour, 90},
		{"zero interval treated as daily", 1000, 0, 900},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CalculateBatchSize(tt.quota, tt.interval))
		})
	}
}

type fakeOMDB struct {
	ratings map[string]float64
	calls   []string
}

func (f *fakeOMDB) Rating(ctx context.Context, imdbID string) (float64, error) {
	f.calls = append(f.calls, imdbID)
	if rating, ok := f.ratings[imdbID]; ok {
		return rating, nil
	}
	return 0, omdb.ErrNoRating
}

func TestRefreshUpdatesRatingsAndTouchesMisses(t *testing.T) {
	db := newTestDB(t)
	shows := repository.NewShowRepository(db)
	settings := repository.NewSettingsRepository(db)
	ctx := context.Background()

	rated := models.Show{ID: 1, Name: "rated", Type: "Scripted", Status: "Running"}
	ratedID := "tt0001"
	rated.IMDBID = &ratedID
	unrated := models.Show{ID: 2, Name: "unrated", Type: "Scripted", Status: "Running"}
	unratedID := "tt0002"
	unrated.IMDBID = &unratedID
	require.NoError(t, shows.UpsertShows(ctx, []models.Show{rated, unrated}))

	require.NoError(t, settings.SaveOMDBConfig(ctx, models.OMDBConfig{
		APIKey:     "test-key",
		Enabled:    true,
		DailyQuota: 1000,
	}))

	fake := &fakeOMDB{ratings: map[string]float64{"tt0001": 8.7}}
	refresher := NewRatingRefresher(shows, settings, zerolog.Nop())
	refresher.newClient = func(apiKey string) OMDBClient {
		require.Equal(t, "test-key", apiKey)
		return fake
	}

	require.NoError(t, refresher.Refresh(ctx, 6*time.Hour))
	require.Len(t, fake.calls, 2)

	got, err := shows.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got.IMDBRating)
	require.InDelta(t, 8.7, *got.IMDBRating, 0.001)
	require.NotNil(t, got.IMDBRatingUpdatedAt)

	// The miss keeps no rating but still rotates to the back of the queue.
	got, err = shows.Get(ctx, 2)
	require.NoError(t, err)
	require.Nil(t, got.IMDBRating)
	require.NotNil(t, got.IMDBRatingUpdatedAt)
}

func TestRefreshSkipsWhenDisabled(t *testing.T) {
	db := newTestDB(t)
	shows := repository.NewShowRepository(db)
	settings := repository.NewSettingsRepository(db)

	fake := &fakeOMDB{}
	refresher := NewRatingRefresher(shows, settings, zerolog.Nop())
	refresher.newClient = func(string) OMDBClient { return fake }

	require.NoError(t, refresher.Refresh(context.Background(), 6*time.Hour))
	require.Empty(t, fake.calls)
}
