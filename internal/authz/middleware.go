package authz

import (
	"net/http"

	"github.com/fluxarr/fluxarr/internal/models"
)

// RequireAdmin ensures the requester carries the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := RoleFromRequest(r)
		if !ok || role != models.RoleAdmin {
			http.Error(w, "insufficient permissions", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
