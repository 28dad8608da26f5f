package middleware

import (
	"alumni-server/utils/errors"
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const userIDKey contextKey = "userID"

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// JWTMiddleware rejects requests without a valid bearer token and stores the
// caller's user id in the request context.
func JWTMiddleware(tokens TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if authHeader == "" || authHeader == "Bearer" {
				WriteError(w, r, errors.ErrUnauthenticated)
				return
			}
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				WriteError(w, r, errors.ErrInvalidToken)
				return
			}
			tokenString = strings.TrimSpace(tokenString)
			if tokenString == "" {
				WriteError(w, r, errors.ErrUnauthenticated)
				return
			}

			userID, err := tokens.Verify(tokenString)
			if err != nil {
				logger.DebugContext(r.Context(), "rejected token", slog.String("path", r.URL.Path), slog.Any("error", err))
				WriteError(w, r, errors.ErrInvalidToken)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the id stored by JWTMiddleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
