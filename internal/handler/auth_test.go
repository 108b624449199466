package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/auth"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/handler"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// --- Mock Gatekeeper ---

type mockGate struct {
	loginFn  func(ctx context.Context, pin, clientKey string) (*auth.LoginResult, error)
	logoutFn func(ctx context.Context, sessionID uuid.UUID) error
}

func (m *mockGate) Login(ctx context.Context, pin, clientKey string) (*auth.LoginResult, error) {
	return m.loginFn(ctx, pin, clientKey)
}

func (m *mockGate) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func setupAuthRouter(gate *mockGate, secure bool) *chi.Mux {
	h := handler.NewAuthHandler(gate, secure, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/admin", func(r chi.Router) {
		h.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(stubAuthorizer{}))
			h.RegisterAdminRoutes(r)
		})
	})
	return r
}

func findCookie(rr interface{ Result() *http.Response }, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- Tests ---

func TestLogin_Success(t *testing.T) {
	expires := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	var gotPIN, gotClient string
	gate := &mockGate{
		loginFn: func(ctx context.Context, pin, clientKey string) (*auth.LoginResult, error) {
			gotPIN, gotClient = pin, clientKey
			return &auth.LoginResult{
				Session: auth.Session{ID: uuid.New(), ExpiresAt: expires},
				Token:   "signed-token",
			}, nil
		},
	}
	r := setupAuthRouter(gate, true)

	rr := doRequest(t, r, http.MethodPost, "/admin/login", map[string]string{"pin": "4321"}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if gotPIN != "4321" {
		t.Errorf("pin: got %q, want 4321", gotPIN)
	}
	// httptest.NewRequest uses 192.0.2.1:1234.
	if gotClient != "192.0.2.1" {
		t.Errorf("client key: got %q, want 192.0.2.1", gotClient)
	}

	c := findCookie(rr, middleware.SessionCookie)
	if c == nil {
		t.Fatal("expected session cookie")
	}
	if c.Value != "signed-token" || !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie: got %+v", c)
	}

	resp := decodeResponse(t, rr)
	if resp["ok"] != true || resp["token"] != "signed-token" {
		t.Errorf("body: got %v", resp)
	}
	if resp["expiresAt"] != "2026-10-18T00:00:00Z" {
		t.Errorf("expiresAt: got %v", resp["expiresAt"])
	}
}

func TestLogin_MissingPIN(t *testing.T) {
	r := setupAuthRouter(&mockGate{}, false)

	rr := doRequest(t, r, http.MethodPost, "/admin/login", map[string]string{}, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestLogin_WrongPIN(t *testing.T) {
	r := setupAuthRouter(&mockGate{
		loginFn: func(ctx context.Context, pin, clientKey string) (*auth.LoginResult, error) {
			return nil, auth.ErrAuthFailure
		},
	}, false)

	rr := doRequest(t, r, http.MethodPost, "/admin/login", map[string]string{"pin": "0000"}, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	resp := decodeResponse(t, rr)
	if resp["ok"] != false || resp["code"] != handler.CodeAuthFailed {
		t.Errorf("body: got %v", resp)
	}
	if findCookie(rr, middleware.SessionCookie) != nil {
		t.Error("failed login must not set a session cookie")
	}
}

func TestLogin_Throttled(t *testing.T) {
	r := setupAuthRouter(&mockGate{
		loginFn: func(ctx context.Context, pin, clientKey string) (*auth.LoginResult, error) {
			return nil, &auth.ThrottledError{RetryAfter: 3500 * time.Millisecond}
		},
	}, false)

	rr := doRequest(t, r, http.MethodPost, "/admin/login", map[string]string{"pin": "0000"}, "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if got := rr.Header().Get("Retry-After"); got != "4" {
		t.Errorf("Retry-After: got %q, want 4", got)
	}
	resp := decodeResponse(t, rr)
	if resp["code"] != handler.CodeTooManyAttempts || resp["retryAfter"] != float64(4) {
		t.Errorf("body: got %v", resp)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	var loggedOut uuid.UUID
	r := setupAuthRouter(&mockGate{
		logoutFn: func(ctx context.Context, sessionID uuid.UUID) error {
			loggedOut = sessionID
			return nil
		},
	}, false)

	rr := doRequest(t, r, http.MethodPost, "/admin/logout", nil, testAdminToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if loggedOut != testSession.ID {
		t.Errorf("session: got %s, want %s", loggedOut, testSession.ID)
	}
	c := findCookie(rr, middleware.SessionCookie)
	if c == nil || c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("cookie: got %+v, want cleared", c)
	}
}

func TestLogout_RequiresSession(t *testing.T) {
	r := setupAuthRouter(&mockGate{}, false)

	rr := doRequest(t, r, http.MethodPost, "/admin/logout", nil, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
