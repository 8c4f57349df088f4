package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/pkg/errors"
)

// JobConfigRepository persists per-job schedule settings. Rows are created
// lazily on first reference with the job's compiled-in defaults.
type JobConfigRepository interface {
	GetOrCreate(ctx context.Context, id string, defaultInterval int) (models.JobConfig, error)
	Update(ctx context.Context, id string, patch models.JobConfigPatch) (models.JobConfig, error)
	SetLastRun(ctx context.Context, id string, at time.Time) error
}

type jobConfigRepository struct {
	db *sql.DB
}

func NewJobConfigRepository(db *sql.DB) JobConfigRepository {
	return &jobConfigRepository{db: db}
}

func (r *jobConfigRepository) get(ctx context.Context, id string) (models.JobConfig, error) {
	var (
		cfg     models.JobConfig
		enabled int64
		lastRun sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, enabled, interval_minutes, last_run FROM job_config WHERE id = ?", id).
		Scan(&cfg.ID, &enabled, &cfg.IntervalMinutes, &lastRun)
	if err != nil {
		return models.JobConfig{}, err
	}
	cfg.Enabled = enabled == 1
	cfg.LastRun = scanTime(lastRun)
	return cfg, nil
}

func (r *jobConfigRepository) GetOrCreate(ctx context.Context, id string, defaultInterval int) (models.JobConfig, error) {
	cfg, err := r.get(ctx, id)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.JobConfig{}, errors.Wrapf(err, "get job config %s", id)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO job_config (id, enabled, interval_minutes) VALUES (?, 1, ?)",
		id, defaultInterval)
	if err != nil {
		return models.JobConfig{}, errors.Wrapf(err, "create job config %s", id)
	}
	return r.get(ctx, id)
}

func (r *jobConfigRepository) Update(ctx context.Context, id string, patch models.JobConfigPatch) (models.JobConfig, error) {
	cfg, err := r.get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.JobConfig{}, ErrNotFound
		}
		return models.JobConfig{}, err
	}

	if patch.Enabled != nil {
		cfg.Enabled = *patch.Enabled
	}
	if patch.IntervalMinutes != nil && *patch.IntervalMinutes > 0 {
		cfg.IntervalMinutes = *patch.IntervalMinutes
	}

	enabled := 0
	if cfg.Enabled {
		enabled = 1
	}
	_, err = r.db.ExecContext(ctx,
		"UPDATE job_config SET enabled = ?, interval_minutes = ? WHERE id = ?",
		enabled, cfg.IntervalMinutes, id)
	if err != nil {
		return models.JobConfig{}, errors.Wrapf(err, "update job config %s", id)
	}
	return cfg, nil
}

func (r *jobConfigRepository) SetLastRun(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE job_config SET last_run = ? WHERE id = ?", formatTime(at), id)
	return err
}
