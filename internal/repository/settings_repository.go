package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/pkg/errors"
)

// SettingsRepository covers the single-row API configs and the stored
// Sonarr/Radarr instances.
type SettingsRepository interface {
	GetOMDBConfig(ctx context.Context) (models.OMDBConfig, error)
	SaveOMDBConfig(ctx context.Context, cfg models.OMDBConfig) error
	GetTMDBConfig(ctx context.Context) (models.TMDBConfig, error)
	SaveTMDBConfig(ctx context.Context, cfg models.TMDBConfig) error

	ListSonarrConfigs(ctx context.Context) ([]models.ArrConfig, error)
	GetSonarrConfig(ctx context.Context, id int64) (models.ArrConfig, error)
	SaveSonarrConfig(ctx context.Context, cfg models.ArrConfig) (models.ArrConfig, error)
	DeleteSonarrConfig(ctx context.Context, id int64) error

	ListRadarrConfigs(ctx context.Context) ([]models.ArrConfig, error)
	GetRadarrConfig(ctx context.Context, id int64) (models.ArrConfig, error)
	SaveRadarrConfig(ctx context.Context, cfg models.ArrConfig) (models.ArrConfig, error)
	DeleteRadarrConfig(ctx context.Context, id int64) error
}

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetOMDBConfig(ctx context.Context) (models.OMDBConfig, error) {
	var (
		cfg       models.OMDBConfig
		enabled   int64
		updatedAt sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT api_key, enabled, daily_quota, updated_at FROM omdb_config WHERE id = 1").
		Scan(&cfg.APIKey, &enabled, &cfg.DailyQuota, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Unconfigured yet; hand back the defaults.
			return models.OMDBConfig{DailyQuota: 1000}, nil
		}
		return models.OMDBConfig{}, errors.Wrap(err, "get omdb config")
	}
	cfg.Enabled = enabled == 1
	if t := scanTime(updatedAt); t != nil {
		cfg.UpdatedAt = *t
	}
	return cfg, nil
}

func (r *settingsRepository) SaveOMDBConfig(ctx context.Context, cfg models.OMDBConfig) error {
	enabled := 0
	if cfg.Enabled {
		enabled = 1
	}
	if cfg.DailyQuota <= 0 {
		cfg.DailyQuota = 1000
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO omdb_config (id, api_key, enabled, daily_quota, updated_at)
		VALUES (1, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			api_key = excluded.api_key,
			enabled = excluded.enabled,
			daily_quota = excluded.daily_quota,
			updated_at = datetime('now')`,
		cfg.APIKey, enabled, cfg.DailyQuota)
	return errors.Wrap(err, "save omdb config")
}

func (r *settingsRepository) GetTMDBConfig(ctx context.Context) (models.TMDBConfig, error) {
	var (
		cfg       models.TMDBConfig
		enabled   int64
		updatedAt sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT api_key, enabled, updated_at FROM tmdb_config WHERE id = 1").
		Scan(&cfg.APIKey, &enabled, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TMDBConfig{}, nil
		}
		return models.TMDBConfig{}, errors.Wrap(err, "get tmdb config")
	}
	cfg.Enabled = enabled == 1
	if t := scanTime(updatedAt); t != nil {
		cfg.UpdatedAt = *t
	}
	return cfg, nil
}

func (r *settingsRepository) SaveTMDBConfig(ctx context.Context, cfg models.TMDBConfig) error {
	enabled := 0
	if cfg.Enabled {
		enabled = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tmdb_config (id, api_key, enabled, updated_at)
		VALUES (1, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			api_key = excluded.api_key,
			enabled = excluded.enabled,
			updated_at = datetime('now')`,
		cfg.APIKey, enabled)
	return errors.Wrap(err, "save tmdb config")
}

const arrColumns = "id, name, url, api_key, quality_profile_id, root_folder_path, is_default, created_at"

func scanArrConfig(row interface{ Scan(...interface{}) error }) (models.ArrConfig, error) {
	var (
		cfg       models.ArrConfig
		isDefault int64
		createdAt sql.NullString
	)
	err := row.Scan(&cfg.ID, &cfg.Name, &cfg.URL, &cfg.APIKey,
		&cfg.QualityProfileID, &cfg.RootFolderPath, &isDefault, &createdAt)
	if err != nil {
		return models.ArrConfig{}, err
	}
	cfg.IsDefault = isDefault == 1
	if t := scanTime(createdAt); t != nil {
		cfg.CreatedAt = *t
	}
	return cfg, nil
}

func (r *settingsRepository) listArrConfigs(ctx context.Context, table string) ([]models.ArrConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+arrColumns+" FROM "+table+" ORDER BY is_default DESC, name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []models.ArrConfig
	for rows.Next() {
		cfg, err := scanArrConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (r *settingsRepository) getArrConfig(ctx context.Context, table string, id int64) (models.ArrConfig, error) {
	cfg, err := scanArrConfig(r.db.QueryRowContext(ctx,
		"SELECT "+arrColumns+" FROM "+table+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ArrConfig{}, ErrNotFound
		}
		return models.ArrConfig{}, err
	}
	return cfg, nil
}

func (r *settingsRepository) saveArrConfig(ctx context.Context, table string, cfg models.ArrConfig) (models.ArrConfig, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ArrConfig{}, err
	}
	defer tx.Rollback()

	isDefault := 0
	if cfg.IsDefault {
		isDefault = 1
		// Only one instance can be the default at a time.
		if _, err := tx.ExecContext(ctx, "UPDATE "+table+" SET is_default = 0"); err != nil {
			return models.ArrConfig{}, err
		}
	}

	if cfg.ID == 0 {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+" (name, url, api_key, quality_profile_id, root_folder_path, is_default) VALUES (?, ?, ?, ?, ?, ?)",
			cfg.Name, cfg.URL, cfg.APIKey, cfg.QualityProfileID, cfg.RootFolderPath, isDefault)
		if err != nil {
			return models.ArrConfig{}, errors.Wrapf(err, "insert %s", table)
		}
		cfg.ID, err = res.LastInsertId()
		if err != nil {
			return models.ArrConfig{}, err
		}
	} else {
		res, err := tx.ExecContext(ctx,
			"UPDATE "+table+" SET name = ?, url = ?, api_key = ?, quality_profile_id = ?, root_folder_path = ?, is_default = ? WHERE id = ?",
			cfg.Name, cfg.URL, cfg.APIKey, cfg.QualityProfileID, cfg.RootFolderPath, isDefault, cfg.ID)
		if err != nil {
			return models.ArrConfig{}, errors.Wrapf(err, "update %s %d", table, cfg.ID)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return models.ArrConfig{}, err
		}
		if affected == 0 {
			return models.ArrConfig{}, ErrNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return models.ArrConfig{}, err
	}
	cfg.CreatedAt = time.Now().UTC()
	return cfg, nil
}

func (r *settingsRepository) deleteArrConfig(ctx context.Context, table string, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *settingsRepository) ListSonarrConfigs(ctx context.Context) ([]models.ArrConfig, error) {
	return r.listArrConfigs(ctx, "sonarr_configs")
}

func (r *settingsRepository) GetSonarrConfig(ctx context.Context, id int64) (models.ArrConfig, error) {
	return r.getArrConfig(ctx, "sonarr_configs", id)
}

func (r *settingsRepository) SaveSonarrConfig(ctx context.Context, cfg models.ArrConfig) (models.ArrConfig, error) {
	return r.saveArrConfig(ctx, "sonarr_configs", cfg)
}

func (r *settingsRepository) DeleteSonarrConfig(ctx context.Context, id int64) error {
	return r.deleteArrConfig(ctx, "sonarr_configs", id)
}

func (r *settingsRepository) ListRadarrConfigs(ctx context.Context) ([]models.ArrConfig, error) {
	return r.listArrConfigs(ctx, "radarr_configs")
}

func (r *settingsRepository) GetRadarrConfig(ctx context.Context, id int64) (models.ArrConfig, error) {
	return r.getArrConfig(ctx, "radarr_configs", id)
}

func (r *settingsRepository) SaveRadarrConfig(ctx context.Context, cfg models.ArrConfig) (models.ArrConfig, error) {
	return r.saveArrConfig(ctx, "radarr_configs", cfg)
}

func (r *settingsRepository) DeleteRadarrConfig(ctx context.Context, id int64) error {
	return r.deleteArrConfig(ctx, "radarr_configs", id)
}
