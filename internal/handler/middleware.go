package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tarjuman/order-service/internal/profile"
)

type contextKey string

const profileContextKey contextKey = "profile"

// ProfileFromContext returns the authenticated profile placed on the
// request context by Authenticator, or nil outside an authenticated route.
func ProfileFromContext(ctx context.Context) *profile.Profile {
	p, _ := ctx.Value(profileContextKey).(*profile.Profile)
	return p
}

// Authenticator resolves the Bearer session token into a profile and
// rejects requests without a valid session.
func Authenticator(profiles profile.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondWithError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			p, err := profiles.ByToken(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("Session token rejected")
				respondWithError(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), profileContextKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route on the admin role. It must run after
// Authenticator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := ProfileFromContext(r.Context())
		if p == nil || !p.IsAdmin() {
			respondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
