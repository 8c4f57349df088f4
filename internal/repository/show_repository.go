package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

// ShowFilter is the browse/filter request translated into SQL by List.
type ShowFilter struct {
	Search    string
	Genre     string
	Status    string
	Network   string
	MinRating *float64
	SortBy    string
	SortDesc  bool
	Limit     int
	Offset    int
}

type ShowRepository interface {
	// UpsertShows writes a page of shows in one transaction. Every column is
	// overwritten; synced_at is stamped on every write.
	UpsertShows(ctx context.Context, shows []models.Show) error
	Get(ctx context.Context, id int64) (models.Show, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, filter ShowFilter) ([]models.Show, int64, error)

	// RatingCandidates returns up to limit shows holding an IMDB id, ordered
	// by refresh priority then staleness.
	RatingCandidates(ctx context.Context, limit int) ([]models.RatingCandidate, error)
	UpdateRating(ctx context.Context, id int64, rating float64) error
	TouchRatingTimestamp(ctx context.Context, id int64) error
}

type showRepository struct {
	db *sql.DB
}

func NewShowRepository(db *sql.DB) ShowRepository {
	return &showRepository{db: db}
}

const upsertShowQuery = `
	INSERT INTO shows (
		id, name, slug, type, language, genres, status, runtime, average_runtime,
		premiered, ended, official_site, schedule_time, schedule_days, rating_average,
		weight, network_id, network_name, network_country_name, network_country_code,
		web_channel_id, web_channel_name, web_channel_country_code, image_medium,
		image_original, summary, imdb_id, thetvdb_id, tvrage_id, updated_at, synced_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		slug = excluded.slug,
		type = excluded.type,
		language = excluded.language,
		genres = excluded.genres,
		status = excluded.status,
		runtime = excluded.runtime,
		average_runtime = excluded.average_runtime,
		premiered = excluded.premiered,
		ended = excluded.ended,
		official_site = excluded.official_site,
		schedule_time = excluded.schedule_time,
		schedule_days = excluded.schedule_days,
		rating_average = excluded.rating_average,
		weight = excluded.weight,
		network_id = excluded.network_id,
		network_name = excluded.network_name,
		network_country_name = excluded.network_country_name,
		network_country_code = excluded.network_country_code,
		web_channel_id = excluded.web_channel_id,
		web_channel_name = excluded.web_channel_name,
		web_channel_country_code = excluded.web_channel_country_code,
		image_medium = excluded.image_medium,
		image_original = excluded.image_original,
		summary = excluded.summary,
		imdb_id = excluded.imdb_id,
		thetvdb_id = excluded.thetvdb_id,
		tvrage_id = excluded.tvrage_id,
		updated_at = excluded.updated_at,
		synced_at = datetime('now')`

func (r *showRepository) UpsertShows(ctx context.Context, shows []models.Show) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin upsert transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertShowQuery)
	if err != nil {
		return errors.Wrap(err, "prepare show upsert")
	}
	defer stmt.Close()

	for _, show := range shows {
		if _, err := stmt.ExecContext(ctx,
			show.ID,
			show.Name,
			show.Slug,
			show.Type,
			show.Language,
			encodeStringList(show.Genres),
			show.Status,
			show.Runtime,
			show.AverageRuntime,
			show.Premiered,
			show.Ended,
			show.OfficialSite,
			show.ScheduleTime,
			encodeStringList(show.ScheduleDays),
			show.RatingAverage,
			show.Weight,
			show.NetworkID,
			show.NetworkName,
			show.NetworkCountryName,
			show.NetworkCountryCode,
			show.WebChannelID,
			show.WebChannelName,
			show.WebChannelCountryCode,
			show.ImageMedium,
			show.ImageOriginal,
			show.Summary,
			show.IMDBID,
			show.TheTVDBID,
			show.TVRageID,
			show.UpdatedAt,
		); err != nil {
			return errors.Wrapf(err, "upsert show %d", show.ID)
		}
	}

	return tx.Commit()
}

const showColumns = `
	id, name, slug, type, language, genres, status, runtime, average_runtime,
	premiered, ended, official_site, schedule_time, schedule_days, rating_average,
	weight, network_id, network_name, network_country_name, network_country_code,
	web_channel_id, web_channel_name, web_channel_country_code, image_medium,
	image_original, summary, imdb_id, thetvdb_id, tvrage_id, imdb_rating,
	imdb_rating_updated_at, updated_at, synced_at`

func scanShow(row interface{ Scan(...interface{}) error }) (models.Show, error) {
	var (
		show                models.Show
		genres              sql.NullString
		scheduleDays        sql.NullString
		imdbRatingUpdatedAt sql.NullString
		syncedAt            sql.NullString
	)
	err := row.Scan(
		&show.ID,
		&show.Name,
		&show.Slug,
		&show.Type,
		&show.Language,
		&genres,
		&show.Status,
		&show.Runtime,
		&show.AverageRuntime,
		&show.Premiered,
		&show.Ended,
		&show.OfficialSite,
		&show.ScheduleTime,
		&scheduleDays,
		&show.RatingAverage,
		&show.Weight,
		&show.NetworkID,
		&show.NetworkName,
		&show.NetworkCountryName,
		&show.NetworkCountryCode,
		&show.WebChannelID,
		&show.WebChannelName,
		&show.WebChannelCountryCode,
		&show.ImageMedium,
		&show.ImageOriginal,
		&show.Summary,
		&show.IMDBID,
		&show.TheTVDBID,
		&show.TVRageID,
		&show.IMDBRating,
		&imdbRatingUpdatedAt,
		&show.UpdatedAt,
		&syncedAt,
	)
	if err != nil {
		return models.Show{}, err
	}

	show.Genres = decodeStringList(genres)
	show.ScheduleDays = decodeStringList(scheduleDays)
	show.IMDBRatingUpdatedAt = scanTime(imdbRatingUpdatedAt)
	if t := scanTime(syncedAt); t != nil {
		show.SyncedAt = *t
	}
	return show, nil
}

func (r *showRepository) Get(ctx context.Context, id int64) (models.Show, error) {
	query := fmt.Sprintf("SELECT %s FROM shows WHERE id = ?", showColumns)
	show, err := scanShow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Show{}, ErrNotFound
		}
		return models.Show{}, err
	}
	return show, nil
}

func (r *showRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shows").Scan(&count)
	return count, err
}

// showSortColumns whitelists user-selectable sort keys.
var showSortColumns = map[string]string{
	"name":       "name",
	"premiered":  "premiered",
	"rating":     "rating_average",
	"imdbRating": "imdb_rating",
	"weight":     "weight",
	"updated":    "updated_at",
}

func (r *showRepository) List(ctx context.Context, filter ShowFilter) ([]models.Show, int64, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Search != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Genre != "" {
		// Genres are a JSON array of strings; match the quoted element.
		where = append(where, "genres LIKE ?")
		args = append(args, "%\""+filter.Genre+"\"%")
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Network != "" {
		where = append(where, "network_name = ?")
		args = append(args, filter.Network)
	}
	if filter.MinRating != nil {
		where = append(where, "rating_average >= ?")
		args = append(args, *filter.MinRating)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shows"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := showSortColumns[filter.SortBy]
	if !ok {
		sortCol = "weight"
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

	query := fmt.Sprintf("SELECT %s FROM shows%s ORDER BY %s %s LIMIT ? OFFSET ?",
		showColumns, clause, sortCol, direction)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	shows := make([]models.Show, 0, limit)
	for rows.Next() {
		show, err := scanShow(rows)
		if err != nil {
			return nil, 0, err
		}
		shows = append(shows, show)
	}
	return shows, total, rows.Err()
}

// ratingCandidatesQuery ranks rating-refresh work. Priority tiers:
//  1. never rated
//  2. actively airing or in development
//  3. ended within the last 2 years
//  4. ended 2-5 years ago
//  5. ended over 5 years ago or unknown
//
// Ties break on staleness, never-refreshed first, so tier 5 still drains
// eventually instead of starving.
const ratingCandidatesQuery = `
	SELECT id, imdb_id, name,
		CASE
			WHEN imdb_rating IS NULL THEN 1
			WHEN status IN ('Running', 'In Development', 'To Be Determined') THEN 2
			WHEN status = 'Ended' AND ended IS NOT NULL AND ended >= date('now', '-2 years') THEN 3
			WHEN status = 'Ended' AND ended IS NOT NULL AND ended >= date('now', '-5 years') THEN 4
			ELSE 5
		END AS priority
	FROM shows
	WHERE imdb_id IS NOT NULL AND imdb_id != ''
	ORDER BY priority ASC, imdb_rating_updated_at ASC NULLS FIRST
	LIMIT ?`

func (r *showRepository) RatingCandidates(ctx context.Context, limit int) ([]models.RatingCandidate, error) {
	rows, err := r.db.QueryContext(ctx, ratingCandidatesQuery, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query rating candidates")
	}
	defer rows.Close()

	var candidates []models.RatingCandidate
	for rows.Next() {
		var c models.RatingCandidate
		if err := rows.Scan(&c.ID, &c.IMDBID, &c.Name, &c.Priority); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (r *showRepository) UpdateRating(ctx context.Context, id int64, rating float64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE shows SET imdb_rating = ?, imdb_rating_updated_at = datetime('now') WHERE id = ?",
		rating, id)
	return err
}

// TouchRatingTimestamp refreshes only the staleness marker. Used when the
// ratings API has no rating for a show, so the row is not re-selected every
// run.
func (r *showRepository) TouchRatingTimestamp(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE shows SET imdb_rating_updated_at = datetime('now') WHERE id = ?", id)
	return err
}
