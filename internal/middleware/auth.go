package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "userID"

// SessionValidator resolves a session token to a user id.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (string, bool, error)
}

// RequireAuth rejects requests without a valid session and stores the user
// id in the request context. Browsers cannot set headers on WebSocket
// upgrades, so the token may also come from the token query parameter.
func RequireAuth(sessions SessionValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "Missing session token")
				return
			}

			userID, ok, err := sessions.ValidateSession(r.Context(), token)
			if err != nil {
				logger.Warn("session validation failed", zap.Error(err))
				writeJSONError(w, http.StatusUnauthorized, "Invalid session token")
				return
			}
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Invalid session token")
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the user id stored by RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
