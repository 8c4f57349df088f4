// Command syncworker runs sync routines once and exits. It is meant for
// bootstrapping a fresh database or forcing a refresh outside the scheduler.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/catalog/tmdb"
	"github.com/fluxarr/fluxarr/internal/catalog/tvmaze"
	"github.com/fluxarr/fluxarr/internal/config"
	"github.com/fluxarr/fluxarr/internal/migration"
	"github.com/fluxarr/fluxarr/internal/ratelimit"
	"github.com/fluxarr/fluxarr/internal/repository"
	"github.com/fluxarr/fluxarr/internal/sync"
)

func main() {
	var (
		fullShows  = flag.Bool("shows-full", false, "run a full show catalog sync")
		incrShows  = flag.Bool("shows", false, "run an incremental show sync")
		seedMovies = flag.Bool("movies-seed", false, "seed the movie catalog")
		incrMovies = flag.Bool("movies", false, "run an incremental movie sync")
		ratings    = flag.Bool("ratings", false, "run one rating refresh batch")
	)
	flag.Parse()

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	if !*fullShows && !*incrShows && !*seedMovies && !*incrMovies && !*ratings {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()

	db, err := repository.OpenDB(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open the database")
	}
	defer db.Close()

	if err := migration.RunMigrations(db, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	showRepo := repository.NewShowRepository(db)
	movieRepo := repository.NewMovieRepository(db)
	statusRepo := repository.NewSyncStatusRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	jobRepo := repository.NewJobConfigRepository(db)

	if cleared, err := statusRepo.ResetAllStale(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to reset sync state")
	} else if cleared > 0 {
		logger.Warn().Int64("cleared", cleared).Msg("Cleared stale sync flags")
	}

	if *fullShows || *incrShows {
		limiter := ratelimit.NewSlidingWindow(20, 10*time.Second)
		syncer := sync.NewShowSyncer(showRepo, statusRepo, tvmaze.NewClient(limiter, logger), logger)
		if *fullShows {
			if err := syncer.FullSync(ctx); err != nil {
				logger.Fatal().Err(err).Msg("Full show sync failed")
			}
		} else {
			if err := syncer.IncrementalSync(ctx); err != nil {
				logger.Fatal().Err(err).Msg("Incremental show sync failed")
			}
		}
	}

	if *seedMovies || *incrMovies {
		tmdbCfg, err := settingsRepo.GetTMDBConfig(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load TMDB config")
		}
		if tmdbCfg.APIKey == "" {
			logger.Fatal().Msg("No TMDB API key configured")
		}
		syncer := sync.NewMovieSyncer(movieRepo, statusRepo, tmdb.NewClient(tmdbCfg.APIKey, logger), logger)
		if *seedMovies {
			if err := syncer.Seed(ctx); err != nil {
				logger.Fatal().Err(err).Msg("Movie seed failed")
			}
		} else {
			if err := syncer.IncrementalSync(ctx); err != nil {
				logger.Fatal().Err(err).Msg("Incremental movie sync failed")
			}
		}
	}

	if *ratings {
		jobCfg, err := jobRepo.GetOrCreate(ctx, "omdb-sync", int((6 * time.Hour).Minutes()))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load job config")
		}
		refresher := sync.NewRatingRefresher(showRepo, settingsRepo, logger)
		interval := time.Duration(jobCfg.IntervalMinutes) * time.Minute
		if err := refresher.Refresh(ctx, interval); err != nil {
			logger.Fatal().Err(err).Msg("Rating refresh failed")
		}
	}

	logger.Info().Msg("Done.")
}
