package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/enum"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultSessionTTL = 12 * time.Hour

// Errors returned by the Gate.
var (
	ErrAuthFailure  = errors.New("invalid PIN")
	ErrUnauthorized = errors.New("admin session required")
)

// ThrottledError is returned while a client key is cooling down.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

// LoginResult is a freshly issued session and its bearer token.
type LoginResult struct {
	Session Session
	Token   string
}

// Gate issues and checks admin sessions.
type Gate struct {
	pins     *PINVerifier
	sessions SessionStore
	throttle Throttle
	secret   string
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewGate(pins *PINVerifier, sessions SessionStore, throttle Throttle, secret string, ttl time.Duration, log *zap.Logger) *Gate {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Gate{
		pins:     pins,
		sessions: sessions,
		throttle: throttle,
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// Login checks pin for clientKey and opens a session on success.
func (g *Gate) Login(ctx context.Context, pin, clientKey string) (*LoginResult, error) {
	wait, err := g.throttle.Acquire(ctx, clientKey)
	if err != nil {
		return nil, fmt.Errorf("login throttle: %w", err)
	}
	if wait > 0 {
		return nil, &ThrottledError{RetryAfter: wait}
	}

	if !g.pins.Verify(pin) {
		g.log.Warn("admin login failed", zap.String("client", clientKey))
		return nil, ErrAuthFailure
	}

	if err := g.throttle.Reset(ctx, clientKey); err != nil {
		g.log.Error("reset login throttle", zap.String("client", clientKey), zap.Error(err))
	}

	now := g.now()
	s := Session{ID: uuid.New(), IssuedAt: now, ExpiresAt: now.Add(g.ttl)}
	if err := g.sessions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	token, err := GenerateToken(g.secret, s, enum.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	g.log.Info("admin login", zap.String("client", clientKey), zap.String("session_id", s.ID.String()))
	return &LoginResult{Session: s, Token: token}, nil
}

// Authorize returns the session behind token, or ErrUnauthorized.
func (g *Gate) Authorize(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrUnauthorized
	}
	claims, err := ValidateToken(g.secret, token)
	if err != nil || claims.Role != enum.RoleAdmin {
		return Session{}, ErrUnauthorized
	}
	id, err := claims.SessionID()
	if err != nil {
		return Session{}, ErrUnauthorized
	}
	ok, err := g.sessions.Exists(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("check session: %w", err)
	}
	if !ok {
		return Session{}, ErrUnauthorized
	}
	s := Session{ID: id}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Logout invalidates a session before its expiry.
func (g *Gate) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := g.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	g.log.Info("admin logout", zap.String("session_id", sessionID.String()))
	return nil
}
