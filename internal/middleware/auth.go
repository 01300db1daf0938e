package middleware

import (
	"net/http"
	"strings"

	"github.com/kweku/susu/internal/auth"
)

// RequireAuth returns middleware that validates JWT bearer tokens and rejects
// unauthenticated requests. On success the authenticated principal (user ID)
// is added to the request context.
func RequireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := validate(jwtManager, r)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"code":"UNAUTHENTICATED"}`))
				return
			}
			ctx := auth.WithPrincipal(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth returns middleware that adds the principal to the context when
// a valid token is present but lets anonymous requests through. Used for the
// read-only query routes.
func OptionalAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := validate(jwtManager, r); ok {
				ctx := auth.WithPrincipal(r.Context(), claims.UserID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validate(jwtManager *auth.JWTManager, r *http.Request) (*auth.Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}
	claims, err := jwtManager.Validate(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}
