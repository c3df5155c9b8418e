package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

// UserIDKey carries the authenticated caller's identity through the
// request context.
const UserIDKey contextKey = "user_id"

// Middleware validates the Authorization header of incoming HTTP calls
// and injects the caller identity into the request context. Requests
// without a valid bearer token are rejected before reaching a handler.
func Middleware(log *slog.Logger, tokens *TokenManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			http.Error(w, "authorization token is missing", http.StatusUnauthorized)
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := tokens.ValidateToken(tokenStr)
		if err != nil {
			log.Warn("rejecting request with invalid token", "path", r.URL.Path, "error", err)
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerID extracts the authenticated identity placed by Middleware.
func CallerID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}
