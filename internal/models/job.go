package models

import "time"

// JobConfig is the persisted per-job schedule record, created lazily with the
// job's default interval on first reference. LastRun is the sole source of
// truth for schedule computation across process restarts.
type JobConfig struct {
	ID              string     `json:"id" db:"id"`
	Enabled         bool       `json:"enabled" db:"enabled"`
	IntervalMinutes int        `json:"interval_minutes" db:"interval_minutes"`
	LastRun         *time.Time `json:"last_run" db:"last_run"`
}

// JobConfigPatch is a partial update to a JobConfig; nil fields are left
// unchanged.
type JobConfigPatch struct {
	Enabled         *bool `json:"enabled"`
	IntervalMinutes *int  `json:"interval_minutes"`
}

// JobStatus is the admin view of one scheduled job, combining the persisted
// config with the scheduler's in-memory state.
type JobStatus struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Enabled         bool       `json:"enabled"`
	IntervalMinutes int        `json:"interval_minutes"`
	IsRunning       bool       `json:"is_running"`
	LastRun         *time.Time `json:"last_run"`
	LastResult      string     `json:"last_result"`
	LastError       string     `json:"last_error"`
	NextRun         *time.Time `json:"next_run"`
}
