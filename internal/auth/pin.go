package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PINVerifier checks a submitted PIN against the configured secret.
type PINVerifier struct {
	hash   []byte   // bcrypt hash, preferred
	digest [32]byte // sha256 of a plaintext PIN
}

// NewPINVerifier prefers a bcrypt hash; plainPIN is used only when hash is empty.
func NewPINVerifier(hash, plainPIN string) (*PINVerifier, error) {
	hash = strings.TrimSpace(hash)
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, errors.New("ADMIN_PIN_HASH is not a bcrypt hash")
		}
		return &PINVerifier{hash: []byte(hash)}, nil
	}
	if plainPIN == "" {
		return nil, errors.New("no admin PIN configured")
	}
	return &PINVerifier{digest: sha256.Sum256([]byte(plainPIN))}, nil
}

// Verify reports whether pin matches. Comparing fixed-size digests keeps the
// running time independent of how many leading characters match.
func (v *PINVerifier) Verify(pin string) bool {
	if v.hash != nil {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(pin)) == nil
	}
	d := sha256.Sum256([]byte(pin))
	return subtle.ConstantTimeCompare(d[:], v.digest[:]) == 1
}

// HashPIN returns a bcrypt hash of pin.
func HashPIN(pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
