package sync

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fluxarr/fluxarr/internal/catalog/tmdb"
	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

// fakeTMDB serves a tiny fixed catalog: one popular page, one top-rated page
// and empty discover windows.
type fakeTMDB struct {
	changes     []int64
	detailCalls []int64
}

func page(results ...tmdb.MovieSummary) tmdb.MoviePage {
	return tmdb.MoviePage{Page: 1, TotalPages: 1, Results: results}
}

func summary(id int64, title string) tmdb.MovieSummary {
	return tmdb.MovieSummary{ID: id, Title: title, GenreIDs: []int64{28}, VoteAverage: 7.0}
}

func (f *fakeTMDB) Popular(ctx context.Context, p int) (tmdb.MoviePage, error) {
	return page(summary(1, "Heat"), summary(2, "Ronin")), nil
}

func (f *fakeTMDB) TopRated(ctx context.Context, p int) (tmdb.MoviePage, error) {
	return page(summary(3, "Seven Samurai")), nil
}

func (f *fakeTMDB) Discover(ctx context.Context, from, to, p int) (tmdb.MoviePage, error) {
	return page(), nil
}

func (f *fakeTMDB) Changes(ctx context.Context, start, end string, p int) (tmdb.ChangesPage, error) {
	out := tmdb.ChangesPage{Page: 1, TotalPages: 1}
	for _, id := range f.changes {
		out.Results = append(out.Results, struct {
			ID    int64 `json:"id"`
			Adult *bool `json:"adult"`
		}{ID: id})
	}
	return out, nil
}

func (f *fakeTMDB) MovieDetails(ctx context.Context, id int64) (tmdb.MovieDetails, error) {
	f.detailCalls = append(f.detailCalls, id)
	return tmdb.MovieDetails{ID: id, Title: "Heat (Remastered)", VoteAverage: 8.3}, nil
}

func (f *fakeTMDB) GenreMap(ctx context.Context) (map[int64]string, error) {
	return map[int64]string{28: "Action"}, nil
}

func TestSeedBuildsCatalogAndStamps(t *testing.T) {
	db := newTestDB(t)
	movies := repository.NewMovieRepository(db)
	status := repository.NewSyncStatusRepository(db)
	syncer := NewMovieSyncer(movies, status, &fakeTMDB{}, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, syncer.Seed(ctx))

	count, err := movies.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	got, err := movies.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"Action"}, got.Genres)

	state, err := status.Get(ctx, models.SyncDomainMovies)
	require.NoError(t, err)
	require.NotNil(t, state.LastFullSync)
	require.False(t, state.IsSyncing)
	require.Equal(t, int64(3), state.TotalRows)
}

func TestIncrementalMovieSyncIntersectsWithLocalCatalog(t *testing.T) {
	db := newTestDB(t)
	movies := repository.NewMovieRepository(db)
	status := repository.NewSyncStatusRepository(db)
	// Movie 999 changed upstream but is not in the local catalog.
	fake := &fakeTMDB{changes: []int64{1, 999}}
	syncer := NewMovieSyncer(movies, status, fake, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, syncer.Seed(ctx))
	require.NoError(t, syncer.IncrementalSync(ctx))

	require.Equal(t, []int64{1}, fake.detailCalls, "only locally held movies get detail fetches")

	got, err := movies.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Heat (Remastered)", got.Title)

	state, err := status.Get(ctx, models.SyncDomainMovies)
	require.NoError(t, err)
	require.NotNil(t, state.LastIncrementalSync)
}

func TestIncrementalMovieSyncFallsBackToSeed(t *testing.T) {
	db := newTestDB(t)
	movies := repository.NewMovieRepository(db)
	status := repository.NewSyncStatusRepository(db)
	syncer := NewMovieSyncer(movies, status, &fakeTMDB{}, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, syncer.IncrementalSync(ctx))

	count, err := movies.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	state, err := status.Get(ctx, models.SyncDomainMovies)
	require.NoError(t, err)
	require.NotNil(t, state.LastFullSync)
}
