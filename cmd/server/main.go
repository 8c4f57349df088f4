package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/catalog/tmdb"
	"github.com/fluxarr/fluxarr/internal/catalog/tvmaze"
	"github.com/fluxarr/fluxarr/internal/config"
	"github.com/fluxarr/fluxarr/internal/handlers"
	"github.com/fluxarr/fluxarr/internal/logsink"
	"github.com/fluxarr/fluxarr/internal/middleware"
	"github.com/fluxarr/fluxarr/internal/migration"
	"github.com/fluxarr/fluxarr/internal/ratelimit"
	"github.com/fluxarr/fluxarr/internal/repository"
	"github.com/fluxarr/fluxarr/internal/routes"
	"github.com/fluxarr/fluxarr/internal/scheduler"
	"github.com/fluxarr/fluxarr/internal/sync"
)

type application struct {
	config    *config.Config
	db        *sql.DB
	logger    zerolog.Logger
	scheduler *scheduler.Scheduler
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// Initialize database connection.
	db, err := repository.OpenDB(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open the database")
	}
	defer db.Close()

	// Run database migrations.
	if err := migration.RunMigrations(db, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Persist warnings and errors for the admin log view.
	logRepo := repository.NewLogRepository(db)
	logger = logger.Hook(logsink.NewHook(logRepo))

	app := &application{
		config: cfg,
		db:     db,
		logger: logger,
	}

	// A crash can leave sync flags set; clear them before any job runs.
	statusRepo := repository.NewSyncStatusRepository(db)
	if cleared, err := statusRepo.ResetAllStale(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to reset sync state")
	} else if cleared > 0 {
		logger.Warn().Int64("cleared", cleared).Msg("Cleared stale sync flags from previous run")
	}

	// Start the background job scheduler.
	app.scheduler = app.buildScheduler(statusRepo)
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	if err := app.scheduler.Start(schedulerCtx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(statusRepo, logRepo)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, cancelScheduler, logger)

	logger.Info().Msg("Application terminated.")
}

// buildScheduler wires the background jobs. The TMDB and OMDB jobs read their
// API configuration fresh each run so settings changes apply without a
// restart.
func (app *application) buildScheduler(statusRepo repository.SyncStatusRepository) *scheduler.Scheduler {
	showRepo := repository.NewShowRepository(app.db)
	movieRepo := repository.NewMovieRepository(app.db)
	settingsRepo := repository.NewSettingsRepository(app.db)
	libraryRepo := repository.NewSonarrLibraryRepository(app.db)
	jobRepo := repository.NewJobConfigRepository(app.db)

	limiter := ratelimit.NewSlidingWindow(20, 10*time.Second)
	tvmazeClient := tvmaze.NewClient(limiter, app.logger)
	showSyncer := sync.NewShowSyncer(showRepo, statusRepo, tvmazeClient, app.logger)
	librarySyncer := sync.NewLibrarySyncer(settingsRepo, libraryRepo, app.logger)
	ratingRefresher := sync.NewRatingRefresher(showRepo, settingsRepo, app.logger)

	sched := scheduler.New(jobRepo, app.logger)

	sched.Register(scheduler.JobDefinition{
		ID:              "sonarr-sync",
		Name:            "Sonarr Library Sync",
		Description:     "Mirror the series list of each configured Sonarr instance",
		DefaultInterval: 5 * time.Minute,
		Run:             librarySyncer.Sync,
	})
	sched.Register(scheduler.JobDefinition{
		ID:              "tvmaze-sync",
		Name:            "Show Catalog Sync",
		Description:     "Apply the TVMaze change feed to the show catalog",
		DefaultInterval: 24 * time.Hour,
		Run:             showSyncer.IncrementalSync,
	})
	sched.Register(scheduler.JobDefinition{
		ID:              "tmdb-sync",
		Name:            "Movie Catalog Sync",
		Description:     "Apply the TMDB change feed to the movie catalog",
		DefaultInterval: 24 * time.Hour,
		Run: func(ctx context.Context) error {
			cfg, err := settingsRepo.GetTMDBConfig(ctx)
			if err != nil {
				return err
			}
			if !cfg.Enabled || cfg.APIKey == "" {
				app.logger.Debug().Msg("tmdb disabled, skipping movie sync")
				return nil
			}
			client := tmdb.NewClient(cfg.APIKey, app.logger)
			return sync.NewMovieSyncer(movieRepo, statusRepo, client, app.logger).IncrementalSync(ctx)
		},
	})
	sched.Register(scheduler.JobDefinition{
		ID:              "omdb-sync",
		Name:            "IMDB Rating Refresh",
		Description:     "Refresh IMDB ratings for the highest-priority shows",
		DefaultInterval: 6 * time.Hour,
		Run: func(ctx context.Context) error {
			jobCfg, err := jobRepo.GetOrCreate(ctx, "omdb-sync", int((6 * time.Hour).Minutes()))
			if err != nil {
				return err
			}
			interval := time.Duration(jobCfg.IntervalMinutes) * time.Minute
			return ratingRefresher.Refresh(ctx, interval)
		},
	})

	return sched
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(statusRepo repository.SyncStatusRepository, logRepo repository.LogRepository) http.Handler {
	userRepo := repository.NewUserRepository(app.db)
	showRepo := repository.NewShowRepository(app.db)
	movieRepo := repository.NewMovieRepository(app.db)
	settingsRepo := repository.NewSettingsRepository(app.db)
	libraryRepo := repository.NewSonarrLibraryRepository(app.db)
	requestRepo := repository.NewRequestRepository(app.db)

	authHandler := handlers.NewAuthHandler(userRepo, app.config.JWTSecret, app.logger)
	showHandler := handlers.NewShowHandler(showRepo, app.logger)
	movieHandler := handlers.NewMovieHandler(movieRepo, app.logger)
	jobHandler := handlers.NewJobHandler(app.scheduler, app.logger)
	syncHandler := handlers.NewSyncStatusHandler(statusRepo, app.logger)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, app.logger)
	arrHandler := handlers.NewArrHandler(settingsRepo, libraryRepo, requestRepo, app.logger)
	requestHandler := handlers.NewRequestHandler(requestRepo, app.logger)
	logHandler := handlers.NewLogHandler(logRepo, app.logger)

	return routes.NewRouter(authHandler, showHandler, movieHandler, jobHandler,
		syncHandler, settingsHandler, arrHandler, requestHandler, logHandler)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, cancelScheduler context.CancelFunc, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the scheduler and wait for in-flight jobs.
	logger.Info().Msg("Stopping scheduler...")
	cancelScheduler()
	app.scheduler.Stop()
	logger.Info().Msg("Scheduler stopped.")
}
