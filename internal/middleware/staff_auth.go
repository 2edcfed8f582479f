package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/helpdesk/internal/logger"
	"github.com/helpdesk/internal/service"
)

// StaffAuth resolves the Bearer token to a staff member and puts it in the
// request context. 401 for missing/unknown tokens.
func StaffAuth(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			staff, err := auth.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, service.ErrForbidden) && !errors.Is(err, service.ErrInvalidUser) {
					logger.Errorf("staff auth token=%s: %v", MaskToken(token), err)
				}
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), StaffKey, staff)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireManager gates schedule management behind the system_manager role.
// Runs after StaffAuth.
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		staff := GetStaff(r.Context())
		if staff == nil || !staff.IsManager() {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return ""
}
