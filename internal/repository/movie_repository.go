package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/pkg/errors"
)

// MovieFilter mirrors ShowFilter for the movie catalog.
type MovieFilter struct {
	Search    string
	Genre     string
	Year      string
	MinRating *float64
	SortBy    string
	SortDesc  bool
	Limit     int
	Offset    int
}

type MovieRepository interface {
	UpsertMovies(ctx context.Context, movies []models.Movie) error
	Get(ctx context.Context, id int64) (models.Movie, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, filter MovieFilter) ([]models.Movie, int64, error)

	// ExistingIDs returns the set of movie ids present locally, used to
	// intersect the upstream change feed against our catalog.
	ExistingIDs(ctx context.Context) (map[int64]struct{}, error)
}

type movieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) MovieRepository {
	return &movieRepository{db: db}
}

const upsertMovieQuery = `
	INSERT INTO movies (
		id, title, original_title, slug, language, genres, status, runtime,
		release_date, revenue, budget, vote_average, vote_count, popularity,
		imdb_id, poster_path, backdrop_path, overview, tagline,
		production_companies, production_countries, spoken_languages,
		updated_at, synced_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'), datetime('now'))
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		original_title = excluded.original_title,
		slug = excluded.slug,
		language = excluded.language,
		genres = excluded.genres,
		status = excluded.status,
		runtime = excluded.runtime,
		release_date = excluded.release_date,
		revenue = excluded.revenue,
		budget = excluded.budget,
		vote_average = excluded.vote_average,
		vote_count = excluded.vote_count,
		popularity = excluded.popularity,
		imdb_id = excluded.imdb_id,
		poster_path = excluded.poster_path,
		backdrop_path = excluded.backdrop_path,
		overview = excluded.overview,
		tagline = excluded.tagline,
		production_companies = excluded.production_companies,
		production_countries = excluded.production_countries,
		spoken_languages = excluded.spoken_languages,
		updated_at = excluded.updated_at,
		synced_at = datetime('now')`

func (r *movieRepository) UpsertMovies(ctx context.Context, movies []models.Movie) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin upsert transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertMovieQuery)
	if err != nil {
		return errors.Wrap(err, "prepare movie upsert")
	}
	defer stmt.Close()

	for _, movie := range movies {
		if _, err := stmt.ExecContext(ctx,
			movie.ID,
			movie.Title,
			movie.OriginalTitle,
			movie.Slug,
			movie.Language,
			encodeStringList(movie.Genres),
			movie.Status,
			movie.Runtime,
			movie.ReleaseDate,
			movie.Revenue,
			movie.Budget,
			movie.VoteAverage,
			movie.VoteCount,
			movie.Popularity,
			movie.IMDBID,
			movie.PosterPath,
			movie.BackdropPath,
			movie.Overview,
			movie.Tagline,
			encodeStringList(movie.ProductionCompanies),
			encodeStringList(movie.ProductionCountries),
			encodeStringList(movie.SpokenLanguages),
		); err != nil {
			return errors.Wrapf(err, "upsert movie %d", movie.ID)
		}
	}

	return tx.Commit()
}

const movieColumns = `
	id, title, original_title, slug, language, genres, status, runtime,
	release_date, revenue, budget, vote_average, vote_count, popularity,
	imdb_id, poster_path, backdrop_path, overview, tagline,
	production_companies, production_countries, spoken_languages,
	updated_at, synced_at`

func scanMovie(row interface{ Scan(...interface{}) error }) (models.Movie, error) {
	var (
		movie     models.Movie
		genres    sql.NullString
		companies sql.NullString
		countries sql.NullString
		languages sql.NullString
		updatedAt sql.NullString
		syncedAt  sql.NullString
	)
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.OriginalTitle,
		&movie.Slug,
		&movie.Language,
		&genres,
		&movie.Status,
		&movie.Runtime,
		&movie.ReleaseDate,
		&movie.Revenue,
		&movie.Budget,
		&movie.VoteAverage,
		&movie.VoteCount,
		&movie.Popularity,
		&movie.IMDBID,
		&movie.PosterPath,
		&movie.BackdropPath,
		&movie.Overview,
		&movie.Tagline,
		&companies,
		&countries,
		&languages,
		&updatedAt,
		&syncedAt,
	)
	if err != nil {
		return models.Movie{}, err
	}

	movie.Genres = decodeStringList(genres)
	movie.ProductionCompanies = decodeStringList(companies)
	movie.ProductionCountries = decodeStringList(countries)
	movie.SpokenLanguages = decodeStringList(languages)
	movie.UpdatedAt = scanTime(updatedAt)
	if t := scanTime(syncedAt); t != nil {
		movie.SyncedAt = *t
	}
	return movie, nil
}

func (r *movieRepository) Get(ctx context.Context, id int64) (models.Movie, error) {
	query := fmt.Sprintf("SELECT %s FROM movies WHERE id = ?", movieColumns)
	movie, err := scanMovie(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Movie{}, ErrNotFound
		}
		return models.Movie{}, err
	}
	return movie, nil
}

func (r *movieRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies").Scan(&count)
	return count, err
}

func (r *movieRepository) ExistingIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM movies")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

var movieSortColumns = map[string]string{
	"title":      "title",
	"released":   "release_date",
	"rating":     "vote_average",
	"popularity": "popularity",
	"revenue":    "revenue",
}

func (r *movieRepository) List(ctx context.Context, filter MovieFilter) ([]models.Movie, int64, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Search != "" {
		where = append(where, "(title LIKE ? OR original_title LIKE ?)")
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	if filter.Genre != "" {
		where = append(where, "genres LIKE ?")
		args = append(args, "%\""+filter.Genre+"\"%")
	}
	if filter.Year != "" {
		where = append(where, "release_date LIKE ?")
		args = append(args, filter.Year+"-%")
	}
	if filter.MinRating != nil {
		where = append(where, "vote_average >= ?")
		args = append(args, *filter.MinRating)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := movieSortColumns[filter.SortBy]
	if !ok {
		sortCol = "popularity"
		filter.SortDesc = true
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := fmt.Sprintf("SELECT %s FROM movies%s ORDER BY %s %s LIMIT ? OFFSET ?",
		movieColumns, clause, sortCol, direction)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	movies := make([]models.Movie, 0, limit)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, 0, err
		}
		movies = append(movies, movie)
	}
	return movies, total, rows.Err()
}
