package authz

import (
	"context"
	"net/http"

	"github.com/fluxarr/fluxarr/internal/models"
)

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	userRoleKey contextKey = "user_role"
)

// WithIdentity stores user and role information on the context.
func WithIdentity(ctx context.Context, userID int64, role models.UserRole) context.Context {
	if userID != 0 {
		ctx = context.WithValue(ctx, userIDKey, userID)
	}
	if !models.IsValidRole(role) {
		role = models.RoleUser
	}
	return context.WithValue(ctx, userRoleKey, role)
}

func UserIDFromRequest(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value(userIDKey).(int64)
	if !ok || uid == 0 {
		return 0, false
	}
	return uid, true
}

func RoleFromRequest(r *http.Request) (models.UserRole, bool) {
	role, ok := r.Context().Value(userRoleKey).(models.UserRole)
	if !ok || !models.IsValidRole(role) {
		return "", false
	}
	return role, true
}
