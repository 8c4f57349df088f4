package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/fluxarr/fluxarr/internal/models"
)

// RequestRepository tracks which shows users have forwarded to Sonarr.
type RequestRepository interface {
	// Create records a request. A repeat request for the same show by the
	// same user is a no-op.
	Create(ctx context.Context, req models.ShowRequest) error

	// ListForUser returns one user's requests, newest first, each joined
	// with its show, instance and the mirrored Sonarr library row.
	ListForUser(ctx context.Context, userID int64) ([]models.ShowRequestView, error)

	// ListAll is the admin view across every user.
	ListAll(ctx context.Context) ([]models.ShowRequestView, error)

	Get(ctx context.Context, id int64) (models.ShowRequest, error)
	Delete(ctx context.Context, id int64) error
}

type requestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req models.ShowRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO requests (user_id, show_id, sonarr_config_id, sonarr_series_id, tvdb_id, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, show_id) DO NOTHING`,
		req.UserID, req.ShowID, req.SonarrConfigID, req.SonarrSeriesID, req.TVDBID, req.Status)
	if err != nil {
		return errors.Wrapf(err, "insert request for show %d", req.ShowID)
	}
	return nil
}

// requestListQuery joins each request with its show, instance, requester and the
// mirrored library row of the same series on the same instance.
const requestListQuery = `
	SELECT r.id, r.user_id, r.show_id, r.sonarr_config_id, r.sonarr_series_id,
		r.tvdb_id, r.status, r.requested_at, r.updated_at,
		s.name, s.image_medium, s.status,
		sc.name, u.email,
		sl.sonarr_id, sl.monitored, sl.status,
		sl.episode_count, sl.episode_file_count, sl.size_on_disk
	FROM requests r
	JOIN shows s ON s.id = r.show_id
	JOIN sonarr_configs sc ON sc.id = r.sonarr_config_id
	JOIN users u ON u.id = r.user_id
	LEFT JOIN sonarr_library sl
		ON sl.config_id = r.sonarr_config_id AND sl.tvdb_id = r.tvdb_id`

func (r *requestRepository) ListForUser(ctx context.Context, userID int64) ([]models.ShowRequestView, error) {
	rows, err := r.db.QueryContext(ctx,
		requestListQuery+" WHERE r.user_id = ? ORDER BY r.requested_at DESC", userID)
	if err != nil {
		return nil, err
	}
	return scanRequestViews(rows)
}

func (r *requestRepository) ListAll(ctx context.Context) ([]models.ShowRequestView, error) {
	rows, err := r.db.QueryContext(ctx, requestListQuery+" ORDER BY r.requested_at DESC")
	if err != nil {
		return nil, err
	}
	return scanRequestViews(rows)
}

func scanRequestViews(rows *sql.Rows) ([]models.ShowRequestView, error) {
	defer rows.Close()

	var views []models.ShowRequestView
	for rows.Next() {
		var (
			view         models.ShowRequestView
			requestedAt  sql.NullString
			updatedAt    sql.NullString
			showImage    sql.NullString
			showStatus   sql.NullString
			libSonarrID  sql.NullInt64
			libMonitored sql.NullInt64
			libStatus    sql.NullString
			libEpisodes  sql.NullInt64
			libFiles     sql.NullInt64
			libSize      sql.NullInt64
		)
		if err := rows.Scan(&view.ID, &view.UserID, &view.ShowID, &view.SonarrConfigID,
			&view.SonarrSeriesID, &view.TVDBID, &view.Status, &requestedAt, &updatedAt,
			&view.ShowName, &showImage, &showStatus,
			&view.ConfigName, &view.UserEmail,
			&libSonarrID, &libMonitored, &libStatus,
			&libEpisodes, &libFiles, &libSize); err != nil {
			return nil, err
		}
		if t := scanTime(requestedAt); t != nil {
			view.RequestedAt = *t
		}
		if t := scanTime(updatedAt); t != nil {
			view.UpdatedAt = *t
		}
		if showImage.Valid {
			view.ShowImage = &showImage.String
		}
		if showStatus.Valid && showStatus.String != "" {
			view.ShowStatus = &showStatus.String
		}
		if libSonarrID.Valid {
			state := models.RequestDownloadState{
				SonarrID:         libSonarrID.Int64,
				Monitored:        libMonitored.Int64 == 1,
				EpisodeCount:     libEpisodes.Int64,
				EpisodeFileCount: libFiles.Int64,
				SizeOnDisk:       libSize.Int64,
			}
			if libStatus.Valid {
				state.Status = &libStatus.String
			}
			view.Download = &state
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

func (r *requestRepository) Get(ctx context.Context, id int64) (models.ShowRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, show_id, sonarr_config_id, sonarr_series_id,
			tvdb_id, status, requested_at, updated_at
		FROM requests WHERE id = ?`, id)

	var (
		req         models.ShowRequest
		requestedAt sql.NullString
		updatedAt   sql.NullString
	)
	err := row.Scan(&req.ID, &req.UserID, &req.ShowID, &req.SonarrConfigID,
		&req.SonarrSeriesID, &req.TVDBID, &req.Status, &requestedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ShowRequest{}, ErrNotFound
	}
	if err != nil {
		return models.ShowRequest{}, err
	}
	if t := scanTime(requestedAt); t != nil {
		req.RequestedAt = *t
	}
	if t := scanTime(updatedAt); t != nil {
		req.UpdatedAt = *t
	}
	return req, nil
}

func (r *requestRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM requests WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "delete request %d", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
