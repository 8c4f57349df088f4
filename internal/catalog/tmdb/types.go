package tmdb

import (
	"strings"

	"github.com/fluxarr/fluxarr/internal/models"
)

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieSummary is a list-endpoint row. Genres arrive as ids only; details
// endpoints carry full objects.
type MovieSummary struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	OriginalTitle    string   `json:"original_title"`
	OriginalLanguage string   `json:"original_language"`
	GenreIDs         []int64  `json:"genre_ids"`
	ReleaseDate      string   `json:"release_date"`
	VoteAverage      float64  `json:"vote_average"`
	VoteCount        int64    `json:"vote_count"`
	Popularity       float64  `json:"popularity"`
	PosterPath       *string  `json:"poster_path"`
	BackdropPath     *string  `json:"backdrop_path"`
	Overview         string   `json:"overview"`
}

type MoviePage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int64          `json:"total_results"`
	Results      []MovieSummary `json:"results"`
}

type ChangesPage struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Results    []struct {
		ID    int64 `json:"id"`
		Adult *bool `json:"adult"`
	} `json:"results"`
}

type MovieDetails struct {
	ID                  int64   `json:"id"`
	Title               string  `json:"title"`
	OriginalTitle       string  `json:"original_title"`
	OriginalLanguage    string  `json:"original_language"`
	Genres              []Genre `json:"genres"`
	Status              string  `json:"status"`
	Runtime             *int64  `json:"runtime"`
	ReleaseDate         string  `json:"release_date"`
	Revenue             int64   `json:"revenue"`
	Budget              int64   `json:"budget"`
	VoteAverage         float64 `json:"vote_average"`
	VoteCount           int64   `json:"vote_count"`
	Popularity          float64 `json:"popularity"`
	IMDBID              *string `json:"imdb_id"`
	PosterPath          *string `json:"poster_path"`
	BackdropPath        *string `json:"backdrop_path"`
	Overview            string  `json:"overview"`
	Tagline             string  `json:"tagline"`
	ProductionCompanies []struct {
		Name string `json:"name"`
	} `json:"production_companies"`
	ProductionCountries []struct {
		Name string `json:"name"`
	} `json:"production_countries"`
	SpokenLanguages []struct {
		EnglishName string `json:"english_name"`
	} `json:"spoken_languages"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Slugify derives a URL slug from a title, matching the catalog's slug style.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ToModel converts a list row into a catalog row, resolving genre ids through
// the supplied map.
func (m MovieSummary) ToModel(genres map[int64]string) models.Movie {
	names := make([]string, 0, len(m.GenreIDs))
	for _, id := range m.GenreIDs {
		if name, ok := genres[id]; ok {
			names = append(names, name)
		}
	}

	va, vc, pop := m.VoteAverage, m.VoteCount, m.Popularity
	movie := models.Movie{
		ID:            m.ID,
		Title:         m.Title,
		OriginalTitle: strPtr(m.OriginalTitle),
		Slug:          strPtr(Slugify(m.Title)),
		Language:      strPtr(m.OriginalLanguage),
		Genres:        names,
		ReleaseDate:   strPtr(m.ReleaseDate),
		VoteAverage:   &va,
		VoteCount:     &vc,
		Popularity:    &pop,
		PosterPath:    m.PosterPath,
		BackdropPath:  m.BackdropPath,
		Overview:      strPtr(m.Overview),
	}
	return movie
}

// ToModel converts a details record into a catalog row.
func (m MovieDetails) ToModel() models.Movie {
	names := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		names = append(names, g.Name)
	}
	companies := make([]string, 0, len(m.ProductionCompanies))
	for _, c := range m.ProductionCompanies {
		companies = append(companies, c.Name)
	}
	countries := make([]string, 0, len(m.ProductionCountries))
	for _, c := range m.ProductionCountries {
		countries = append(countries, c.Name)
	}
	languages := make([]string, 0, len(m.SpokenLanguages))
	for _, l := range m.SpokenLanguages {
		languages = append(languages, l.EnglishName)
	}

	va, vc, pop := m.VoteAverage, m.VoteCount, m.Popularity
	revenue, budget := m.Revenue, m.Budget
	return models.Movie{
		ID:                  m.ID,
		Title:               m.Title,
		OriginalTitle:       strPtr(m.OriginalTitle),
		Slug:                strPtr(Slugify(m.Title)),
		Language:            strPtr(m.OriginalLanguage),
		Genres:              names,
		Status:              strPtr(m.Status),
		Runtime:             m.Runtime,
		ReleaseDate:         strPtr(m.ReleaseDate),
		Revenue:             &revenue,
		Budget:              &budget,
		VoteAverage:         &va,
		VoteCount:           &vc,
		Popularity:          &pop,
		IMDBID:              m.IMDBID,
		PosterPath:          m.PosterPath,
		BackdropPath:        m.BackdropPath,
		Overview:            strPtr(m.Overview),
		Tagline:             strPtr(m.Tagline),
		ProductionCompanies: companies,
		ProductionCountries: countries,
		SpokenLanguages:     languages,
	}
}
