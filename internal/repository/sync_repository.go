package repository

import (
	"context"
	"database/sql"

	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/pkg/errors"
)

// SyncStatusRepository owns the per-domain sync state rows, the crash
// recovery anchor of the sync subsystem.
type SyncStatusRepository interface {
	Get(ctx context.Context, domain models.SyncDomain) (models.SyncStatus, error)
	SetSyncing(ctx context.Context, domain models.SyncDomain, syncing bool, progress *models.SyncProgress) error
	StampFullSync(ctx context.Context, domain models.SyncDomain, totalRows int64) error
	StampIncrementalSync(ctx context.Context, domain models.SyncDomain, totalRows int64) error

	// ResetStale clears a stuck is_syncing flag, returning whether a row was
	// actually stuck. Safe to call when nothing is stuck.
	ResetStale(ctx context.Context, domain models.SyncDomain) (bool, error)

	// ResetAllStale sweeps every domain at process startup, repairing
	// artifacts of an unclean exit.
	ResetAllStale(ctx context.Context) (int64, error)
}

type syncStatusRepository struct {
	db *sql.DB
}

func NewSyncStatusRepository(db *sql.DB) SyncStatusRepository {
	return &syncStatusRepository{db: db}
}

func (r *syncStatusRepository) Get(ctx context.Context, domain models.SyncDomain) (models.SyncStatus, error) {
	var (
		status      models.SyncStatus
		lastFull    sql.NullString
		lastIncr    sql.NullString
		isSyncing   int64
		rawProgress sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT domain, last_full_sync, last_incremental_sync, total_rows, is_syncing, sync_progress
		FROM sync_status WHERE domain = ?`, string(domain)).
		Scan(&status.Domain, &lastFull, &lastIncr, &status.TotalRows, &isSyncing, &rawProgress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SyncStatus{}, ErrNotFound
		}
		return models.SyncStatus{}, errors.Wrapf(err, "get sync status for %s", domain)
	}

	status.LastFullSync = scanTime(lastFull)
	status.LastIncrementalSync = scanTime(lastIncr)
	status.IsSyncing = isSyncing == 1
	status.Progress = decodeProgress(rawProgress)
	return status, nil
}

func (r *syncStatusRepository) SetSyncing(ctx context.Context, domain models.SyncDomain, syncing bool, progress *models.SyncProgress) error {
	flag := 0
	if syncing {
		flag = 1
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE sync_status SET is_syncing = ?, sync_progress = ? WHERE domain = ?",
		flag, encodeProgress(progress), string(domain))
	return err
}

func (r *syncStatusRepository) StampFullSync(ctx context.Context, domain models.SyncDomain, totalRows int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sync_status SET last_full_sync = datetime('now'), total_rows = ? WHERE domain = ?",
		totalRows, string(domain))
	return err
}

func (r *syncStatusRepository) StampIncrementalSync(ctx context.Context, domain models.SyncDomain, totalRows int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sync_status SET last_incremental_sync = datetime('now'), total_rows = ? WHERE domain = ?",
		totalRows, string(domain))
	return err
}

func (r *syncStatusRepository) ResetStale(ctx context.Context, domain models.SyncDomain) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE sync_status SET is_syncing = 0, sync_progress = NULL WHERE domain = ? AND is_syncing = 1",
		string(domain))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (r *syncStatusRepository) ResetAllStale(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE sync_status SET is_syncing = 0, sync_progress = NULL WHERE is_syncing = 1")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
