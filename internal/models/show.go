package models

import "time"

// Show is a TVMaze-sourced catalog row. All attributes mirror the upstream
// record; UpdatedAt carries the upstream last-modified marker (epoch seconds)
// and SyncedAt is stamped locally on every upsert.
type Show struct {
	ID                    int64      `json:"id" db:"id"`
	Name                  string     `json:"name" db:"name"`
	Slug                  *string    `json:"slug" db:"slug"`
	Type                  string     `json:"type" db:"type"`
	Language              *string    `json:"language" db:"language"`
	Genres                []string   `json:"genres" db:"genres"`
	Status                string     `json:"status" db:"status"`
	Runtime               *int64     `json:"runtime" db:"runtime"`
	AverageRuntime        *int64     `json:"average_runtime" db:"average_runtime"`
	Premiered             *string    `json:"premiered" db:"premiered"`
	Ended                 *string    `json:"ended" db:"ended"`
	OfficialSite          *string    `json:"official_site" db:"official_site"`
	ScheduleTime          *string    `json:"schedule_time" db:"schedule_time"`
	ScheduleDays          []string   `json:"schedule_days" db:"schedule_days"`
	RatingAverage         *float64   `json:"rating_average" db:"rating_average"`
	Weight                int64      `json:"weight" db:"weight"`
	NetworkID             *int64     `json:"network_id" db:"network_id"`
	NetworkName           *string    `json:"network_name" db:"network_name"`
	NetworkCountryName    *string    `json:"network_country_name" db:"network_country_name"`
	NetworkCountryCode    *string    `json:"network_country_code" db:"network_country_code"`
	WebChannelID          *int64     `json:"web_channel_id" db:"web_channel_id"`
	WebChannelName        *string    `json:"web_channel_name" db:"web_channel_name"`
	WebChannelCountryCode *string    `json:"web_channel_country_code" db:"web_channel_country_code"`
	ImageMedium           *string    `json:"image_medium" db:"image_medium"`
	ImageOriginal         *string    `json:"image_original" db:"image_original"`
	Summary               *string    `json:"summary" db:"summary"`
	IMDBID                *string    `json:"imdb_id" db:"imdb_id"`
	TheTVDBID             *int64     `json:"thetvdb_id" db:"thetvdb_id"`
	TVRageID              *int64     `json:"tvrage_id" db:"tvrage_id"`
	IMDBRating            *float64   `json:"imdb_rating" db:"imdb_rating"`
	IMDBRatingUpdatedAt   *time.Time `json:"imdb_rating_updated_at" db:"imdb_rating_updated_at"`
	UpdatedAt             int64      `json:"updated_at" db:"updated_at"`
	SyncedAt              time.Time  `json:"synced_at" db:"synced_at"`
}

// RatingCandidate is a show selected for an IMDB rating refresh, annotated
// with the priority tier it was chosen under.
type RatingCandidate struct {
	ID       int64  `json:"id"`
	IMDBID   string `json:"imdb_id"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}
