package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fluxarr/fluxarr/internal/migration"
	"github.com/fluxarr/fluxarr/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.RunMigrations(db, zerolog.Nop()))
	return db
}

func strp(s string) *string    { return &s }
func f64p(f float64) *float64  { return &f }

func testShow(id int64, name string) models.Show {
	return models.Show{
		ID:        id,
		Name:      name,
		Type:      "Scripted",
		Status:    "Running",
		Genres:    []string{"Drama"},
		Weight:    90,
		UpdatedAt: 1600000000,
	}
}

func TestUpsertShowsIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewShowRepository(db)
	ctx := context.Background()

	show := testShow(1, "Severance")
	show.IMDBID = strp("tt11280740")

	require.NoError(t, repo.UpsertShows(ctx, []models.Show{show}))
	require.NoError(t, repo.UpsertShows(ctx, []models.Show{show}))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	// A changed upstream record overwrites every column.
	show.Name = "Severance (2022)"
	show.Status = "Ended"
	require.NoError(t, repo.UpsertShows(ctx, []models.Show{show}))

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Severance (2022)", got.Name)
	require.Equal(t, "Ended", got.Status)
	require.Equal(t, []string{"Drama"}, got.Genres)

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestRatingCandidatesPriorityTiers(t *testing.T) {
	db := newTestDB(t)
	repo := NewShowRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	date := func(yearsAgo int) string {
		return now.AddDate(-yearsAgo, 0, 1).Format("2006-01-02")
	}

	shows := []models.Show{}
	add := func(id int64, name, status string, ended *string) {
		s := testShow(id, name)
		s.Status = status
		s.Ended = ended
		s.IMDBID = strp("tt000000" + name)
		shows = append(shows, s)
	}

	add(1, "never-rated", "Ended", strp(date(10)))
	add(2, "airing", "Running", nil)
	add(3, "recently-ended", "Ended", strp(date(1)))
	add(4, "ended-a-while-ago", "Ended", strp(date(4)))
	add(5, "ancient", "Ended", strp(date(10)))
	require.NoError(t, repo.UpsertShows(ctx, shows))

	// Everyone but show 1 already has a rating; tiers take over from there.
	for _, id := range []int64{2, 3, 4, 5} {
		require.NoError(t, repo.UpdateRating(ctx, id, 8.0))
	}

	candidates, err := repo.RatingCandidates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 5)

	order := make([]int64, 0, 5)
	for _, c := range candidates {
		order = append(order, c.ID)
	}
	require.Equal(t, []int64{1, 2, 3, 4, 5}, order)
	require.Equal(t, []int{1, 2, 3, 4, 5}, []int{
		candidates[0].Priority, candidates[1].Priority, candidates[2].Priority,
		candidates[3].Priority, candidates[4].Priority,
	})
}

func TestRatingCandidatesStalenessTieBreak(t *testing.T) {
	db := newTestDB(t)
	repo := NewShowRepository(db)
	ctx := context.Background()

	var shows []models.Show
	for i := int64(1); i <= 3; i++ {
		s := testShow(i, "show")
		s.Status = "Running"
		s.IMDBID = strp("tt" + s.Name)
		shows = append(shows, s)
	}
	require.NoError(t, repo.UpsertShows(ctx, shows))

	// All three hold ratings; 2 was refreshed before 1, and 3 never had its
	// timestamp set after the rating write was backdated to NULL.
	for _, id := range []int64{1, 2} {
		require.NoError(t, repo.UpdateRating(ctx, id, 7.5))
	}
	_, err := db.ExecContext(ctx,
		"UPDATE shows SET imdb_rating_updated_at = datetime('now', '-2 days') WHERE id = 2")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		"UPDATE shows SET imdb_rating = 7.5, imdb_rating_updated_at = NULL WHERE id = 3")
	require.NoError(t, err)

	candidates, err := repo.RatingCandidates(ctx, 3)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// NULL timestamp drains first, then oldest refresh.
	require.Equal(t, int64(3), candidates[0].ID)
	require.Equal(t, int64(2), candidates[1].ID)
	require.Equal(t, int64(1), candidates[2].ID)
}

func TestRatingCandidatesSkipsShowsWithoutIMDBID(t *testing.T) {
	db := newTestDB(t)
	repo := NewShowRepository(db)
	ctx := context.Background()

	withID := testShow(1, "has-id")
	withID.IMDBID = strp("tt0001")
	withoutID := testShow(2, "no-id")
	require.NoError(t, repo.UpsertShows(ctx, []models.Show{withID, withoutID}))

	candidates, err := repo.RatingCandidates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, int64(1), candidates[0].ID)
}

func TestTouchRatingTimestampLeavesRatingAlone(t *testing.T) {
	db := newTestDB(t)
	repo := NewShowRepository(db)
	ctx := context.Background()

	show := testShow(1, "no-omdb-record")
	show.IMDBID = strp("tt0002")
	require.NoError(t, repo.UpsertShows(ctx, []models.Show{show}))

	require.NoError(t, repo.TouchRatingTimestamp(ctx, 1))

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, got.IMDBRating)
	require.NotNil(t, got.IMDBRatingUpdatedAt)
}

func TestListFiltersAndPaginates(t *testing.T) {
	db := newTestDB(t)
	repo := NewShowRepository(db)
	ctx := context.Background()

	a := testShow(1, "Breaking Bad")
	a.Genres = []string{"Crime", "Drama"}
	a.RatingAverage = f64p(9.3)
	b := testShow(2, "Better Call Saul")
	b.Genres = []string{"Crime"}
	b.RatingAverage = f64p(8.9)
	c := testShow(3, "The Office")
	c.Genres = []string{"Comedy"}
	c.RatingAverage = f64p(8.5)
	require.NoError(t, repo.UpsertShows(ctx, []models.Show{a, b, c}))

	shows, total, err := repo.List(ctx, ShowFilter{Genre: "Crime", SortBy: "rating", SortDesc: true})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, shows, 2)
	require.Equal(t, "Breaking Bad", shows[0].Name)

	shows, total, err = repo.List(ctx, ShowFilter{Search: "office"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "The Office", shows[0].Name)
}
