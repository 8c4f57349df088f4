// Package sync holds the timer-driven routines that mirror external catalogs
// into the local database. Every routine is resumable and idempotent: work is
// committed in page-sized transactions and re-running a routine converges on
// the same state.
package sync

import (
	"context"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/catalog/tvmaze"
	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

// ShowSyncer mirrors the TVMaze catalog into the shows table.
type ShowSyncer struct {
	shows  repository.ShowRepository
	status repository.SyncStatusRepository
	client *tvmaze.Client
	logger zerolog.Logger
}

func NewShowSyncer(shows repository.ShowRepository, status repository.SyncStatusRepository, client *tvmaze.Client, logger zerolog.Logger) *ShowSyncer {
	return &ShowSyncer{
		shows:  shows,
		status: status,
		client: client,
		logger: logger.With().Str("component", "show-sync").Logger(),
	}
}

// FullSync walks the paged show index from page 0 until the upstream reports
// the end. Each page is one transaction, so an interrupted run keeps every
// completed page and a re-run converges by overwriting.
func (s *ShowSyncer) FullSync(ctx context.Context) error {
	log := s.logger.With().Str("run_id", uuid.NewString()).Logger()

	if err := s.status.SetSyncing(ctx, models.SyncDomainShows, true, &models.SyncProgress{Phase: "pages"}); err != nil {
		return errors.Wrap(err, "mark syncing")
	}
	defer s.status.SetSyncing(context.Background(), models.SyncDomainShows, false, nil)

	log.Info().Msg("full show sync started")

	upserted := 0
	for page := 0; ; page++ {
		shows, err := s.client.ShowsPage(ctx, page)
		if err != nil {
			if errors.Is(err, tvmaze.ErrNotFound) {
				break
			}
			return errors.Wrapf(err, "fetch page %d", page)
		}
		if len(shows) == 0 {
			break
		}

		batch := make([]models.Show, 0, len(shows))
		for _, show := range shows {
			batch = append(batch, show.ToModel())
		}
		if err := s.shows.UpsertShows(ctx, batch); err != nil {
			return errors.Wrapf(err, "upsert page %d", page)
		}

		upserted += len(batch)
		progress := &models.SyncProgress{Current: upserted, Phase: "pages"}
		if err := s.status.SetSyncing(ctx, models.SyncDomainShows, true, progress); err != nil {
			return errors.Wrap(err, "update progress")
		}
		log.Debug().Int("page", page).Int("total", upserted).Msg("page committed")
	}

	total, err := s.shows.Count(ctx)
	if err != nil {
		return errors.Wrap(err, "count shows")
	}
	if err := s.status.StampFullSync(ctx, models.SyncDomainShows, total); err != nil {
		return errors.Wrap(err, "stamp full sync")
	}

	log.Info().Int("upserted", upserted).Int64("total", total).Msg("full show sync finished")
	return nil
}

// IncrementalSync applies the upstream change feed for the last day. With no
// prior full sync on record it delegates to FullSync instead.
func (s *ShowSyncer) IncrementalSync(ctx context.Context) error {
	log := s.logger.With().Str("run_id", uuid.NewString()).Logger()

	status, err := s.status.Get(ctx, models.SyncDomainShows)
	if err != nil {
		return errors.Wrap(err, "get sync status")
	}

	if status.IsSyncing {
		// A flag left set with no routine running is a crash artifact. This
		// process owns all sync work, so it is safe to clear and proceed.
		log.Warn().Msg("stale sync flag found, resetting")
		if _, err := s.status.ResetStale(ctx, models.SyncDomainShows); err != nil {
			return errors.Wrap(err, "reset stale flag")
		}
	}

	if status.LastFullSync == nil {
		log.Info().Msg("no full sync on record, running full sync instead")
		return s.FullSync(ctx)
	}

	updates, err := s.client.Updates(ctx, "day")
	if err != nil {
		return errors.Wrap(err, "fetch update feed")
	}
	if len(updates) == 0 {
		log.Info().Msg("no upstream changes")
		return s.status.StampIncrementalSync(ctx, models.SyncDomainShows, status.TotalRows)
	}

	ids := make([]int64, 0, len(updates))
	for raw := range updates {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := s.status.SetSyncing(ctx, models.SyncDomainShows, true,
		&models.SyncProgress{Total: len(ids), Phase: "details"}); err != nil {
		return errors.Wrap(err, "mark syncing")
	}
	defer s.status.SetSyncing(context.Background(), models.SyncDomainShows, false, nil)

	log.Info().Int("changed", len(ids)).Msg("incremental show sync started")

	synced := 0
	for _, id := range ids {
		show, err := s.client.Show(ctx, id)
		if err != nil {
			if errors.Is(err, tvmaze.ErrNotFound) {
				log.Debug().Int64("show_id", id).Msg("changed show no longer exists upstream")
				continue
			}
			return errors.Wrapf(err, "fetch show %d", id)
		}
		if err := s.shows.UpsertShows(ctx, []models.Show{show.ToModel()}); err != nil {
			return errors.Wrapf(err, "upsert show %d", id)
		}

		synced++
		if synced%50 == 0 {
			progress := &models.SyncProgress{Current: synced, Total: len(ids), Phase: "details"}
			if err := s.status.SetSyncing(ctx, models.SyncDomainShows, true, progress); err != nil {
				return errors.Wrap(err, "update progress")
			}
		}
	}

	total, err := s.shows.Count(ctx)
	if err != nil {
		return errors.Wrap(err, "count shows")
	}
	if err := s.status.StampIncrementalSync(ctx, models.SyncDomainShows, total); err != nil {
		return errors.Wrap(err, "stamp incremental sync")
	}

	log.Info().Int("synced", synced).Msg("incremental show sync finished")
	return nil
}
