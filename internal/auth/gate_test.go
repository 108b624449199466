package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestGate(t *testing.T) *auth.Gate {
	t.Helper()
	pins, err := auth.NewPINVerifier("", "4321")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return auth.NewGate(pins, auth.NewMemorySessionStore(), auth.NewMemoryThrottle(30*time.Second), "gate-secret", time.Hour, zap.NewNop())
}

func TestGateLoginAuthorizeLogout(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t)

	res, err := g.Login(ctx, "4321", "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected token")
	}

	s, err := g.Authorize(ctx, res.Token)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if s.ID != res.Session.ID {
		t.Errorf("session: got %v, want %v", s.ID, res.Session.ID)
	}

	if err := g.Logout(ctx, s.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := g.Authorize(ctx, res.Token); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("after logout: got %v, want ErrUnauthorized", err)
	}
}

func TestGateLoginWrongPIN(t *testing.T) {
	g := newTestGate(t)

	_, err := g.Login(context.Background(), "0000", "10.0.0.2")
	if !errors.Is(err, auth.ErrAuthFailure) {
		t.Fatalf("got %v, want ErrAuthFailure", err)
	}
}

func TestGateThrottlesAfterFailure(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t)

	if _, err := g.Login(ctx, "0000", "10.0.0.3"); !errors.Is(err, auth.ErrAuthFailure) {
		t.Fatalf("first attempt: got %v, want ErrAuthFailure", err)
	}

	// Even the correct PIN is refused while cooling down.
	_, err := g.Login(ctx, "4321", "10.0.0.3")
	var throttled *auth.ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("got %v, want ThrottledError", err)
	}
	if throttled.RetryAfter <= 0 || throttled.RetryAfter > 2*time.Second {
		t.Errorf("retry after: got %v", throttled.RetryAfter)
	}

	// Another client is unaffected.
	if _, err := g.Login(ctx, "4321", "10.0.0.4"); err != nil {
		t.Errorf("other client: %v", err)
	}
}

func TestGateConcurrentWrongPINs(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t)

	const n = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		failed    int
		throttled int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Login(ctx, "0000", "10.0.0.5")
			var te *auth.ThrottledError
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, auth.ErrAuthFailure):
				failed++
			case errors.As(err, &te):
				throttled++
			default:
				t.Errorf("unexpected result: %v", err)
			}
		}()
	}
	wg.Wait()

	if failed != 1 {
		t.Errorf("attempts reaching the PIN check: got %d, want 1", failed)
	}
	if throttled != n-1 {
		t.Errorf("throttled attempts: got %d, want %d", throttled, n-1)
	}
}

func TestGateAuthorizeRejects(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t)

	forged, _ := auth.GenerateToken("other-secret", auth.Session{ID: uuid.New(), IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}, "ADMIN")
	unknown, _ := auth.GenerateToken("gate-secret", auth.Session{ID: uuid.New(), IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}, "ADMIN")

	for name, token := range map[string]string{
		"empty":           "",
		"garbage":         "not-a-jwt",
		"wrong secret":    forged,
		"unknown session": unknown,
	} {
		if _, err := g.Authorize(ctx, token); !errors.Is(err, auth.ErrUnauthorized) {
			t.Errorf("%s: got %v, want ErrUnauthorized", name, err)
		}
	}
}
