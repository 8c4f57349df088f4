package repository

import (
	"context"
	"database/sql"

	"github.com/fluxarr/fluxarr/internal/models"
)

type LogRepository interface {
	Insert(ctx context.Context, entry models.LogEntry) error
	List(ctx context.Context, level string, limit int) ([]models.LogEntry, error)

	// Prune deletes all but the newest keep rows.
	Prune(ctx context.Context, keep int) (int64, error)
}

type logRepository struct {
	db *sql.DB
}

func NewLogRepository(db *sql.DB) LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Insert(ctx context.Context, entry models.LogEntry) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO logs (level, component, message) VALUES (?, ?, ?)",
		entry.Level, entry.Component, entry.Message)
	return err
}

func (r *logRepository) List(ctx context.Context, level string, limit int) ([]models.LogEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	query := "SELECT id, level, component, message, created_at FROM logs"
	args := []interface{}{}
	if level != "" {
		query += " WHERE level = ?"
		args = append(args, level)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var (
			entry     models.LogEntry
			createdAt sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Level, &entry.Component, &entry.Message, &createdAt); err != nil {
			return nil, err
		}
		if t := scanTime(createdAt); t != nil {
			entry.CreatedAt = *t
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *logRepository) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM logs WHERE id NOT IN (
			SELECT id FROM logs ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
