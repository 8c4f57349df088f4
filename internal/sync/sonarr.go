package sync

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/arr/sonarr"
	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

// SonarrClient is the slice of the Sonarr surface the mirror needs.
type SonarrClient interface {
	Series(ctx context.Context) ([]sonarr.Series, error)
}

// LibrarySyncer mirrors each configured Sonarr instance's series list into
// the local cache.
type LibrarySyncer struct {
	settings repository.SettingsRepository
	library  repository.SonarrLibraryRepository
	logger   zerolog.Logger

	newClient func(cfg models.ArrConfig) SonarrClient
}

func NewLibrarySyncer(settings repository.SettingsRepository, library repository.SonarrLibraryRepository, logger zerolog.Logger) *LibrarySyncer {
	return &LibrarySyncer{
		settings: settings,
		library:  library,
		logger:   logger.With().Str("component", "sonarr-sync").Logger(),
		newClient: func(cfg models.ArrConfig) SonarrClient {
			return sonarr.NewClient(cfg)
		},
	}
}

// Sync replaces the cached library of every configured instance. One
// unreachable instance does not block the others.
func (s *LibrarySyncer) Sync(ctx context.Context) error {
	log := s.logger.With().Str("run_id", uuid.NewString()).Logger()

	configs, err := s.settings.ListSonarrConfigs(ctx)
	if err != nil {
		return errors.Wrap(err, "load sonarr configs")
	}
	if len(configs) == 0 {
		log.Debug().Msg("no sonarr instances configured")
		return nil
	}

	var firstErr error
	for _, cfg := range configs {
		series, err := s.newClient(cfg).Series(ctx)
		if err != nil {
			log.Warn().Err(err).Str("instance", cfg.Name).Msg("sonarr unreachable")
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "fetch series from %s", cfg.Name)
			}
			continue
		}

		entries := make([]models.SonarrLibraryEntry, 0, len(series))
		for _, item := range series {
			entries = append(entries, item.ToLibraryEntry(cfg.ID))
		}
		if err := s.library.Replace(ctx, cfg.ID, entries); err != nil {
			return errors.Wrapf(err, "replace library for %s", cfg.Name)
		}
		log.Info().Str("instance", cfg.Name).Int("series", len(entries)).Msg("library mirrored")
	}
	return firstErr
}
