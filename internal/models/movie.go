package models

import "time"

// Movie is a TMDB-sourced catalog row.
type Movie struct {
	ID                  int64      `json:"id" db:"id"`
	Title               string     `json:"title" db:"title"`
	OriginalTitle       *string    `json:"original_title" db:"original_title"`
	Slug                *string    `json:"slug" db:"slug"`
	Language            *string    `json:"language" db:"language"`
	Genres              []string   `json:"genres" db:"genres"`
	Status              *string    `json:"status" db:"status"`
	Runtime             *int64     `json:"runtime" db:"runtime"`
	ReleaseDate         *string    `json:"release_date" db:"release_date"`
	Revenue             *int64     `json:"revenue" db:"revenue"`
	Budget              *int64     `json:"budget" db:"budget"`
	VoteAverage         *float64   `json:"vote_average" db:"vote_average"`
	VoteCount           *int64     `json:"vote_count" db:"vote_count"`
	Popularity          *float64   `json:"popularity" db:"popularity"`
	IMDBID              *string    `json:"imdb_id" db:"imdb_id"`
	PosterPath          *string    `json:"poster_path" db:"poster_path"`
	BackdropPath        *string    `json:"backdrop_path" db:"backdrop_path"`
	Overview            *string    `json:"overview" db:"overview"`
	Tagline             *string    `json:"tagline" db:"tagline"`
	ProductionCompanies []string   `json:"production_companies" db:"production_companies"`
	ProductionCountries []string   `json:"production_countries" db:"production_countries"`
	SpokenLanguages     []string   `json:"spoken_languages" db:"spoken_languages"`
	UpdatedAt           *time.Time `json:"updated_at" db:"updated_at"`
	SyncedAt            time.Time  `json:"synced_at" db:"synced_at"`
}
