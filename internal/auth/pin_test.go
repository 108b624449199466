package auth_test

import (
	"testing"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/auth"
)

func TestPINVerifierPlain(t *testing.T) {
	v, err := auth.NewPINVerifier("", "4321")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if !v.Verify("4321") {
		t.Error("correct PIN rejected")
	}
	for _, pin := range []string{"", "4", "432", "43210", "1234", "4322"} {
		if v.Verify(pin) {
			t.Errorf("PIN %q accepted", pin)
		}
	}
}

func TestPINVerifierBcrypt(t *testing.T) {
	hash, err := auth.HashPIN("8080")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	// The hash wins over a plaintext PIN.
	v, err := auth.NewPINVerifier(hash, "1111")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if !v.Verify("8080") {
		t.Error("correct PIN rejected")
	}
	if v.Verify("1111") {
		t.Error("plaintext PIN must be ignored when a hash is set")
	}
}

func TestNewPINVerifierErrors(t *testing.T) {
	if _, err := auth.NewPINVerifier("", ""); err == nil {
		t.Error("expected error with no PIN configured")
	}
	if _, err := auth.NewPINVerifier("not-bcrypt", ""); err == nil {
		t.Error("expected error with malformed hash")
	}
}
