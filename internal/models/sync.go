package models

import "time"

// SyncDomain is a category of synced external data with its own status row.
type SyncDomain string

const (
	SyncDomainShows  SyncDomain = "shows"
	SyncDomainMovies SyncDomain = "movies"
)

// SyncProgress is a point-in-time snapshot of a running sync, persisted as a
// JSON column so the admin UI can poll it mid-run.
type SyncProgress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Phase   string `json:"phase"`
}

// SyncStatus is the persisted per-domain sync record. IsSyncing must only be
// true while a routine is actually executing; a true value found at routine
// start is a crash artifact and gets reset.
type SyncStatus struct {
	Domain              SyncDomain    `json:"domain" db:"domain"`
	LastFullSync        *time.Time    `json:"last_full_sync" db:"last_full_sync"`
	LastIncrementalSync *time.Time    `json:"last_incremental_sync" db:"last_incremental_sync"`
	TotalRows           int64         `json:"total_rows" db:"total_rows"`
	IsSyncing           bool          `json:"is_syncing" db:"is_syncing"`
	Progress            *SyncProgress `json:"progress" db:"sync_progress"`
}
