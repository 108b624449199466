package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is a live admin session.
type Session struct {
	ID        uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionStore tracks which sessions are still valid.
type SessionStore interface {
	Create(ctx context.Context, s Session) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

var _ SessionStore = (*MemorySessionStore)(nil)

// MemorySessionStore keeps sessions in process memory; a restart logs
// every admin out.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]time.Time
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[uuid.UUID]time.Time), now: time.Now}
}

func (m *MemorySessionStore) Create(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	m.sessions[s.ID] = s.ExpiresAt
	return nil
}

func (m *MemorySessionStore) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.sessions[id]
	if !ok {
		return false, nil
	}
	if !m.now().Before(exp) {
		delete(m.sessions, id)
		return false, nil
	}
	return true, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemorySessionStore) pruneLocked() {
	now := m.now()
	for id, exp := range m.sessions {
		if !now.Before(exp) {
			delete(m.sessions, id)
		}
	}
}
