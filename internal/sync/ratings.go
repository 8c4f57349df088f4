package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/catalog/omdb"
	"github.com/fluxarr/fluxarr/internal/repository"
)

const (
	minBatchSize = 10
	maxBatchSize = 10000

	// quotaHeadroom keeps a slice of the daily budget free for manual lookups
	// and retried calls.
	quotaHeadroom = 0.9
)

// CalculateBatchSize sizes a rating-refresh batch so that a full day of runs
// stays inside the configured request quota.
func CalculateBatchSize(dailyQuota int, interval time.Duration) int {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	runsPerDay := int(24 * time.Hour / interval)
	if runsPerDay < 1 {
		runsPerDay = 1
	}

	batch := int(quotaHeadroom * float64(dailyQuota) / float64(runsPerDay))
	if batch < minBatchSize {
		return minBatchSize
	}
	if batch > maxBatchSize {
		return maxBatchSize
	}
	return batch
}

// OMDBClient is the slice of the OMDB surface the refresher needs.
type OMDBClient interface {
	Rating(ctx context.Context, imdbID string) (float64, error)
}

// RatingRefresher pulls IMDB ratings for the highest-priority slice of the
// show catalog each run.
type RatingRefresher struct {
	shows    repository.ShowRepository
	settings repository.SettingsRepository
	logger   zerolog.Logger

	// newClient builds a client for the currently configured key.
	newClient func(apiKey string) OMDBClient
}

func NewRatingRefresher(shows repository.ShowRepository, settings repository.SettingsRepository, logger zerolog.Logger) *RatingRefresher {
	return &RatingRefresher{
		shows:    shows,
		settings: settings,
		logger:   logger.With().Str("component", "rating-refresh").Logger(),
		newClient: func(apiKey string) OMDBClient {
			return omdb.NewClient(apiKey, logger)
		},
	}
}

// Refresh runs one rating batch. Shows whose lookup yields no rating still
// get their staleness marker advanced, so they rotate to the back of the
// queue instead of being re-selected every run.
func (r *RatingRefresher) Refresh(ctx context.Context, jobInterval time.Duration) error {
	log := r.logger.With().Str("run_id", uuid.NewString()).Logger()

	cfg, err := r.settings.GetOMDBConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "load omdb config")
	}
	if !cfg.Enabled || cfg.APIKey == "" {
		log.Debug().Msg("omdb disabled, skipping")
		return nil
	}

	batch := CalculateBatchSize(cfg.DailyQuota, jobInterval)
	candidates, err := r.shows.RatingCandidates(ctx, batch)
	if err != nil {
		return errors.Wrap(err, "select candidates")
	}
	if len(candidates) == 0 {
		log.Debug().Msg("no rating candidates")
		return nil
	}

	log.Info().Int("batch", len(candidates)).Int("limit", batch).Msg("rating refresh started")

	client := r.newClient(cfg.APIKey)
	updated, missed := 0, 0
	for i, candidate := range candidates {
		rating, err := client.Rating(ctx, candidate.IMDBID)
		switch {
		case err == nil:
			if err := r.shows.UpdateRating(ctx, candidate.ID, rating); err != nil {
				return errors.Wrapf(err, "update rating for show %d", candidate.ID)
			}
			updated++

		case errors.Is(err, omdb.ErrNoRating):
			if err := r.shows.TouchRatingTimestamp(ctx, candidate.ID); err != nil {
				return errors.Wrapf(err, "touch show %d", candidate.ID)
			}
			missed++

		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err

		default:
			// Transient upstream trouble. Advance the marker anyway so one
			// bad title cannot pin the head of the queue.
			log.Warn().Err(err).Str("imdb_id", candidate.IMDBID).Msg("rating lookup failed")
			if err := r.shows.TouchRatingTimestamp(ctx, candidate.ID); err != nil {
				return errors.Wrapf(err, "touch show %d", candidate.ID)
			}
			missed++
		}

		if (i+1)%10 == 0 {
			log.Debug().Int("done", i+1).Int("total", len(candidates)).Msg("rating progress")
		}
	}

	log.Info().Int("updated", updated).Int("missed", missed).Msg("rating refresh finished")
	return nil
}
