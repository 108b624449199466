package auth

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultCooldownCap = 30 * time.Second

	// failCountTTL is how long a client key's failure count outlives its
	// last cooldown.
	failCountTTL = 24 * time.Hour
	pruneEvery   = time.Minute
)

// Throttle slows down repeated PIN failures per client key.
type Throttle interface {
	// Acquire reserves one attempt for key. A positive wait means the
	// attempt is refused. Otherwise the attempt is counted as a failure
	// and key cools down until Reset is called.
	Acquire(ctx context.Context, key string) (time.Duration, error)
	// Reset clears key after a successful login.
	Reset(ctx context.Context, key string) error
}

// CooldownForFailCount returns min(maxWait, 2^failCount seconds).
func CooldownForFailCount(failCount int, maxWait time.Duration) time.Duration {
	if failCount <= 0 {
		return 0
	}
	if failCount > 30 {
		return maxWait
	}
	d := time.Duration(1<<uint(failCount)) * time.Second
	if d > maxWait {
		return maxWait
	}
	return d
}

var _ Throttle = (*MemoryThrottle)(nil)

type throttleEntry struct {
	fails int
	until time.Time
}

// MemoryThrottle is a process-local Throttle.
type MemoryThrottle struct {
	mu      sync.Mutex
	entries map[string]*throttleEntry
	maxWait time.Duration
	now     func() time.Time

	lastPrune time.Time
}

func NewMemoryThrottle(maxWait time.Duration) *MemoryThrottle {
	if maxWait <= 0 {
		maxWait = DefaultCooldownCap
	}
	return &MemoryThrottle{entries: make(map[string]*throttleEntry), maxWait: maxWait, now: time.Now}
}

func (m *MemoryThrottle) Acquire(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.pruneLocked(now)

	e, ok := m.entries[key]
	if !ok {
		e = &throttleEntry{}
		m.entries[key] = e
	}
	if d := e.until.Sub(now); d > 0 {
		return d, nil
	}
	e.fails++
	e.until = now.Add(CooldownForFailCount(e.fails, m.maxWait))
	return 0, nil
}

// pruneLocked drops keys whose failure count has expired. Must hold m.mu.
func (m *MemoryThrottle) pruneLocked(now time.Time) {
	if now.Sub(m.lastPrune) < pruneEvery {
		return
	}
	m.lastPrune = now
	for k, e := range m.entries {
		if now.After(e.until.Add(failCountTTL)) {
			delete(m.entries, k)
		}
	}
}

func (m *MemoryThrottle) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
