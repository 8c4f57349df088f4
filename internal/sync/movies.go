package sync

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/catalog/tmdb"
	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

const (
	seedPopularPages  = 10
	seedTopRatedPages = 10
	seedDiscoverPages = 5
)

// seedDecades partitions the discover seed into release windows so the
// catalog is not dominated by recent titles.
var seedDecades = [][2]int{
	{2020, 2029},
	{2010, 2019},
	{2000, 2009},
	{1990, 1999},
	{1980, 1989},
}

// TMDBClient is the slice of the TMDB surface the movie syncer needs,
// narrowed for test doubles.
type TMDBClient interface {
	Popular(ctx context.Context, page int) (tmdb.MoviePage, error)
	TopRated(ctx context.Context, page int) (tmdb.MoviePage, error)
	Discover(ctx context.Context, fromYear, toYear, page int) (tmdb.MoviePage, error)
	Changes(ctx context.Context, start, end string, page int) (tmdb.ChangesPage, error)
	MovieDetails(ctx context.Context, id int64) (tmdb.MovieDetails, error)
	GenreMap(ctx context.Context) (map[int64]string, error)
}

// MovieSyncer seeds and maintains the movies table from TMDB.
type MovieSyncer struct {
	movies repository.MovieRepository
	status repository.SyncStatusRepository
	client TMDBClient
	logger zerolog.Logger

	now func() time.Time
}

func NewMovieSyncer(movies repository.MovieRepository, status repository.SyncStatusRepository, client TMDBClient, logger zerolog.Logger) *MovieSyncer {
	return &MovieSyncer{
		movies: movies,
		status: status,
		client: client,
		logger: logger.With().Str("component", "movie-sync").Logger(),
		now:    time.Now,
	}
}

// Seed builds the initial movie catalog from the popularity chart, the
// top-rated chart and decade-partitioned discover queries. Pages commit
// independently so an interrupted seed keeps its progress.
func (s *MovieSyncer) Seed(ctx context.Context) error {
	log := s.logger.With().Str("run_id", uuid.NewString()).Logger()

	genres, err := s.client.GenreMap(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch genre map")
	}

	if err := s.status.SetSyncing(ctx, models.SyncDomainMovies, true, &models.SyncProgress{Phase: "seed"}); err != nil {
		return errors.Wrap(err, "mark syncing")
	}
	defer s.status.SetSyncing(context.Background(), models.SyncDomainMovies, false, nil)

	log.Info().Msg("movie seed started")

	upserted := 0
	commit := func(page tmdb.MoviePage) error {
		if len(page.Results) == 0 {
			return nil
		}
		batch := make([]models.Movie, 0, len(page.Results))
		for _, m := range page.Results {
			batch = append(batch, m.ToModel(genres))
		}
		if err := s.movies.UpsertMovies(ctx, batch); err != nil {
			return err
		}
		upserted += len(batch)
		return s.status.SetSyncing(ctx, models.SyncDomainMovies, true,
			&models.SyncProgress{Current: upserted, Phase: "seed"})
	}

	for page := 1; page <= seedPopularPages; page++ {
		result, err := s.client.Popular(ctx, page)
		if err != nil {
			return errors.Wrapf(err, "fetch popular page %d", page)
		}
		if err := commit(result); err != nil {
			return errors.Wrapf(err, "commit popular page %d", page)
		}
		if page >= result.TotalPages {
			break
		}
	}

	for page := 1; page <= seedTopRatedPages; page++ {
		result, err := s.client.TopRated(ctx, page)
		if err != nil {
			return errors.Wrapf(err, "fetch top rated page %d", page)
		}
		if err := commit(result); err != nil {
			return errors.Wrapf(err, "commit top rated page %d", page)
		}
		if page >= result.TotalPages {
			break
		}
	}

	for _, decade := range seedDecades {
		for page := 1; page <= seedDiscoverPages; page++ {
			result, err := s.client.Discover(ctx, decade[0], decade[1], page)
			if err != nil {
				return errors.Wrapf(err, "fetch discover %d-%d page %d", decade[0], decade[1], page)
			}
			if err := commit(result); err != nil {
				return errors.Wrapf(err, "commit discover %d-%d page %d", decade[0], decade[1], page)
			}
			if page >= result.TotalPages {
				break
			}
		}
	}

	total, err := s.movies.Count(ctx)
	if err != nil {
		return errors.Wrap(err, "count movies")
	}
	if err := s.status.StampFullSync(ctx, models.SyncDomainMovies, total); err != nil {
		return errors.Wrap(err, "stamp full sync")
	}

	log.Info().Int("upserted", upserted).Int64("total", total).Msg("movie seed finished")
	return nil
}

// IncrementalSync refreshes locally held movies that appeared in the upstream
// change feed over the last day. With no prior seed on record it delegates to
// Seed instead.
func (s *MovieSyncer) IncrementalSync(ctx context.Context) error {
	log := s.logger.With().Str("run_id", uuid.NewString()).Logger()

	status, err := s.status.Get(ctx, models.SyncDomainMovies)
	if err != nil {
		return errors.Wrap(err, "get sync status")
	}

	if status.IsSyncing {
		log.Warn().Msg("stale sync flag found, resetting")
		if _, err := s.status.ResetStale(ctx, models.SyncDomainMovies); err != nil {
			return errors.Wrap(err, "reset stale flag")
		}
	}

	if status.LastFullSync == nil {
		log.Info().Msg("no seed on record, running seed instead")
		return s.Seed(ctx)
	}

	local, err := s.movies.ExistingIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "load local ids")
	}

	end := s.now().UTC()
	start := end.Add(-24 * time.Hour)
	startStr, endStr := start.Format("2006-01-02"), end.Format("2006-01-02")

	var changed []int64
	for page := 1; ; page++ {
		feed, err := s.client.Changes(ctx, startStr, endStr, page)
		if err != nil {
			return errors.Wrapf(err, "fetch changes page %d", page)
		}
		for _, result := range feed.Results {
			if _, ok := local[result.ID]; ok {
				changed = append(changed, result.ID)
			}
		}
		if page >= feed.TotalPages {
			break
		}
	}

	if len(changed) == 0 {
		log.Info().Msg("no relevant upstream changes")
		return s.status.StampIncrementalSync(ctx, models.SyncDomainMovies, status.TotalRows)
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i] < changed[j] })

	if err := s.status.SetSyncing(ctx, models.SyncDomainMovies, true,
		&models.SyncProgress{Total: len(changed), Phase: "details"}); err != nil {
		return errors.Wrap(err, "mark syncing")
	}
	defer s.status.SetSyncing(context.Background(), models.SyncDomainMovies, false, nil)

	log.Info().Int("changed", len(changed)).Msg("incremental movie sync started")

	synced := 0
	for _, id := range changed {
		details, err := s.client.MovieDetails(ctx, id)
		if err != nil {
			if errors.Is(err, tmdb.ErrNotFound) {
				log.Debug().Int64("movie_id", id).Msg("changed movie no longer exists upstream")
				continue
			}
			return errors.Wrapf(err, "fetch movie %d", id)
		}
		if err := s.movies.UpsertMovies(ctx, []models.Movie{details.ToModel()}); err != nil {
			return errors.Wrapf(err, "upsert movie %d", id)
		}

		synced++
		if synced%50 == 0 {
			progress := &models.SyncProgress{Current: synced, Total: len(changed), Phase: "details"}
			if err := s.status.SetSyncing(ctx, models.SyncDomainMovies, true, progress); err != nil {
				return errors.Wrap(err, "update progress")
			}
		}
	}

	total, err := s.movies.Count(ctx)
	if err != nil {
		return errors.Wrap(err, "count movies")
	}
	if err := s.status.StampIncrementalSync(ctx, models.SyncDomainMovies, total); err != nil {
		return errors.Wrap(err, "stamp incremental sync")
	}

	log.Info().Int("synced", synced).Msg("incremental movie sync finished")
	return nil
}
