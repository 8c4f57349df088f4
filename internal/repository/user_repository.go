package repository

import (
	"context"
	"database/sql"

	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/pkg/errors"
)

type UserRepository interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)",
		user.Email, user.PasswordHash, string(user.Role))
	if err != nil {
		return models.User{}, errors.Wrap(err, "create user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) scanUser(row *sql.Row) (models.User, error) {
	var (
		user      models.User
		createdAt sql.NullString
	)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	if t := scanTime(createdAt); t != nil {
		user.CreatedAt = *t
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, role, created_at FROM users WHERE email = ?", email))
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, role, created_at FROM users WHERE id = ?", id))
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
