package models

import "time"

// Request statuses recorded when a show is forwarded to Sonarr.
const (
	RequestStatusAdded  = "added"
	RequestStatusFailed = "failed"
)

// ShowRequest tracks one user's ask to have a show monitored by Sonarr.
type ShowRequest struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	ShowID         int64     `json:"show_id" db:"show_id"`
	SonarrConfigID int64     `json:"sonarr_config_id" db:"sonarr_config_id"`
	SonarrSeriesID *int64    `json:"sonarr_series_id" db:"sonarr_series_id"`
	TVDBID         *int64    `json:"tvdb_id" db:"tvdb_id"`
	Status         string    `json:"status" db:"status"`
	RequestedAt    time.Time `json:"requested_at" db:"requested_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// RequestDownloadState is the cached Sonarr view of a requested series,
// taken from the mirrored library rather than a live API call.
type RequestDownloadState struct {
	SonarrID         int64   `json:"sonarr_id"`
	Monitored        bool    `json:"monitored"`
	Status           *string `json:"status"`
	EpisodeCount     int64   `json:"episode_count"`
	EpisodeFileCount int64   `json:"episode_file_count"`
	SizeOnDisk       int64   `json:"size_on_disk"`
}

// ShowRequestView is a request joined with its show, instance and requester
// for the requests list.
type ShowRequestView struct {
	ShowRequest
	ShowName   string                `json:"show_name"`
	ShowImage  *string               `json:"show_image"`
	ShowStatus *string               `json:"show_status"`
	ConfigName string                `json:"config_name"`
	UserEmail  string                `json:"user_email"`
	Download   *RequestDownloadState `json:"download"`
}
