package models

import "time"

// OMDBConfig holds the single-row OMDB (IMDB ratings) API configuration.
// DailyQuota is the plan's request budget; the rating-refresh job sizes its
// batches from it.
type OMDBConfig struct {
	APIKey     string    `json:"api_key" db:"api_key"`
	Enabled    bool      `json:"enabled" db:"enabled"`
	DailyQuota int       `json:"daily_quota" db:"daily_quota"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// TMDBConfig holds the single-row TMDB API configuration.
type TMDBConfig struct {
	APIKey    string    `json:"api_key" db:"api_key"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ArrConfig is a stored Sonarr or Radarr instance configuration.
type ArrConfig struct {
	ID               int64     `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	URL              string    `json:"url" db:"url"`
	APIKey           string    `json:"api_key" db:"api_key"`
	QualityProfileID int64     `json:"quality_profile_id" db:"quality_profile_id"`
	RootFolderPath   string    `json:"root_folder_path" db:"root_folder_path"`
	IsDefault        bool      `json:"is_default" db:"is_default"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// SonarrLibraryEntry is a cached row mirroring one series known to a Sonarr
// instance, refreshed wholesale by the sonarr-sync job.
type SonarrLibraryEntry struct {
	ID               int64     `json:"id" db:"id"`
	ConfigID         int64     `json:"config_id" db:"config_id"`
	SonarrID         int64     `json:"sonarr_id" db:"sonarr_id"`
	TVDBID           *int64    `json:"tvdb_id" db:"tvdb_id"`
	Title            string    `json:"title" db:"title"`
	Status           *string   `json:"status" db:"status"`
	Monitored        bool      `json:"monitored" db:"monitored"`
	EpisodeCount     int64     `json:"episode_count" db:"episode_count"`
	EpisodeFileCount int64     `json:"episode_file_count" db:"episode_file_count"`
	SizeOnDisk       int64     `json:"size_on_disk" db:"size_on_disk"`
	Path             *string   `json:"path" db:"path"`
	SyncedAt         time.Time `json:"synced_at" db:"synced_at"`
}
