package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/auth"
)

// SessionCookie carries the admin token for browser clients.
const SessionCookie = "admin_session"

type contextKey string

const sessionKey contextKey = "admin_session"

// Authorizer resolves a bearer token to a live session.
// Satisfied by *auth.Gate.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (auth.Session, error)
}

// RequireAdmin rejects requests without a live admin session and stores the
// session in the request context.
func RequireAdmin(gate Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := TokenFromRequest(r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing admin session", "code": "unauthorized"})
				return
			}

			s, err := gate.Authorize(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired admin session", "code": "unauthorized"})
					return
				}
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error", "code": "internal"})
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest reads "Authorization: Bearer <token>", falling back to
// the session cookie.
func TokenFromRequest(r *http.Request) (string, bool) {
	if r.Header.Get("Authorization") != "" {
		return BearerToken(r)
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// BearerToken reads "Authorization: Bearer <token>" only.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// SessionFromContext returns the session stored by RequireAdmin.
func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey).(auth.Session)
	return s, ok
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
