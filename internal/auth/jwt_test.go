package auth_test

import (
	"testing"
	"time"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/auth"
	"github.com/google/uuid"
)

func newSession(ttl time.Duration) auth.Session {
	now := time.Now()
	return auth.Session{ID: uuid.New(), IssuedAt: now, ExpiresAt: now.Add(ttl)}
}

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	s := newSession(time.Hour)

	token, err := auth.GenerateToken(secret, s, "ADMIN")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	id, err := claims.SessionID()
	if err != nil {
		t.Fatalf("session id: %v", err)
	}
	if id != s.ID {
		t.Errorf("session ID: got %v, want %v", id, s.ID)
	}
	if claims.Role != "ADMIN" {
		t.Errorf("role: got %v, want %v", claims.Role, "ADMIN")
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", newSession(time.Hour), "ADMIN")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	s := auth.Session{ID: uuid.New(), IssuedAt: time.Now().Add(-2 * time.Hour), ExpiresAt: time.Now().Add(-time.Hour)}
	token, err := auth.GenerateToken("secret", s, "ADMIN")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := auth.ValidateToken("secret", token); err == nil {
		t.Fatal("expected error validating expired token")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}
