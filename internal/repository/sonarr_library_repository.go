package repository

import (
	"context"
	"database/sql"

	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/pkg/errors"
)

// SonarrLibraryRepository caches the series list of each Sonarr instance.
type SonarrLibraryRepository interface {
	// Replace swaps the cached library of one instance atomically.
	Replace(ctx context.Context, configID int64, entries []models.SonarrLibraryEntry) error
	List(ctx context.Context, configID int64) ([]models.SonarrLibraryEntry, error)

	// TVDBIDs returns the set of tvdb ids present across all instances, used
	// to mark catalog shows already managed by Sonarr.
	TVDBIDs(ctx context.Context) (map[int64]struct{}, error)
}

type sonarrLibraryRepository struct {
	db *sql.DB
}

func NewSonarrLibraryRepository(db *sql.DB) SonarrLibraryRepository {
	return &sonarrLibraryRepository{db: db}
}

func (r *sonarrLibraryRepository) Replace(ctx context.Context, configID int64, entries []models.SonarrLibraryEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin library replace")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sonarr_library WHERE config_id = ?", configID); err != nil {
		return errors.Wrap(err, "clear sonarr library")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sonarr_library (
			config_id, sonarr_id, tvdb_id, title, status, monitored,
			episode_count, episode_file_count, size_on_disk, path, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))`)
	if err != nil {
		return errors.Wrap(err, "prepare library insert")
	}
	defer stmt.Close()

	for _, entry := range entries {
		monitored := 0
		if entry.Monitored {
			monitored = 1
		}
		if _, err := stmt.ExecContext(ctx,
			configID, entry.SonarrID, entry.TVDBID, entry.Title, entry.Status,
			monitored, entry.EpisodeCount, entry.EpisodeFileCount,
			entry.SizeOnDisk, entry.Path,
		); err != nil {
			return errors.Wrapf(err, "insert library entry %d", entry.SonarrID)
		}
	}

	return tx.Commit()
}

func (r *sonarrLibraryRepository) List(ctx context.Context, configID int64) ([]models.SonarrLibraryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, config_id, sonarr_id, tvdb_id, title, status, monitored,
			episode_count, episode_file_count, size_on_disk, path, synced_at
		FROM sonarr_library WHERE config_id = ? ORDER BY title ASC`, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.SonarrLibraryEntry
	for rows.Next() {
		var (
			entry     models.SonarrLibraryEntry
			monitored int64
			syncedAt  sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.ConfigID, &entry.SonarrID,
			&entry.TVDBID, &entry.Title, &entry.Status, &monitored,
			&entry.EpisodeCount, &entry.EpisodeFileCount, &entry.SizeOnDisk,
			&entry.Path, &syncedAt); err != nil {
			return nil, err
		}
		entry.Monitored = monitored == 1
		if t := scanTime(syncedAt); t != nil {
			entry.SyncedAt = *t
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *sonarrLibraryRepository) TVDBIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT tvdb_id FROM sonarr_library WHERE tvdb_id IS NOT NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}
