package handler

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/auth"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gatekeeper defines the auth methods needed by auth handlers.
// Satisfied by *auth.Gate; narrow interface for testability.
type Gatekeeper interface {
	Login(ctx context.Context, pin, clientKey string) (*auth.LoginResult, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
}

// AuthHandler handles admin login and logout.
type AuthHandler struct {
	gate         Gatekeeper
	secureCookie bool
	log          *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the session
// cookie Secure and should be set when served over HTTPS.
func NewAuthHandler(gate Gatekeeper, secureCookie bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{gate: gate, secureCookie: secureCookie, log: log}
}

// RegisterRoutes registers the public login endpoint. Expected to be mounted
// at /admin outside RequireAdmin.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
}

// RegisterAdminRoutes registers endpoints that need a live session.
func (h *AuthHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/logout", h.Logout)
}

// --- Request / Response types ---

type loginRequest struct {
	PIN string `json:"pin"`
}

type loginResponse struct {
	OK        bool   `json:"ok"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// --- Handlers ---

// Login handles POST /admin/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, CodeInvalidInput, "invalid request body")
		return
	}

	if req.PIN == "" {
		writeErr(w, http.StatusBadRequest, CodeInvalidInput, "pin is required")
		return
	}

	result, err := h.gate.Login(r.Context(), req.PIN, clientKey(r))
	if err != nil {
		writeServiceError(w, h.log, "admin login", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		OK:        true,
		Token:     result.Token,
		ExpiresAt: formatTime(result.Session.ExpiresAt),
	})
}

// Logout handles POST /admin/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, CodeUnauthorized, "admin session required")
		return
	}

	if err := h.gate.Logout(r.Context(), session.ID); err != nil {
		writeServiceError(w, h.log, "admin logout", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// clientKey identifies the caller for login throttling. RemoteAddr is
// already rewritten by chi's RealIP when running behind a trusted proxy.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
