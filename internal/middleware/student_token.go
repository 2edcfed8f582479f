package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// StudentCookieName carries the anonymous student token. The token binds
// the browser to its chats on first access.
const StudentCookieName = "helpdesk_token"

const studentCookieMaxAge = 365 * 24 * 3600

// StudentToken ensures every student request carries a token: an existing
// cookie is reused, otherwise a fresh one is minted and set.
func StudentToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if c, err := r.Cookie(StudentCookieName); err == nil && c.Value != "" {
			token = c.Value
		} else {
			token = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     StudentCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   studentCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), StudentTokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
