package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps orders in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	orders  map[uuid.UUID]Order
	ids     []uuid.UUID // insertion order
	history map[uuid.UUID][]StatusEvent
	seq     int32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  make(map[uuid.UUID]Order),
		history: make(map[uuid.UUID][]StatusEvent),
	}
}

func (m *MemoryStore) Insert(_ context.Context, o Order) (Order, error) {
	if err := checkStorable(o); err != nil {
		return Order{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[o.ID]; ok {
		return Order{}, ErrDuplicateID
	}
	m.seq++
	o.Number = FormatOrderNumber(m.seq)
	o.UpdatedAt = o.CreatedAt

	m.orders[o.ID] = o
	m.ids = append(m.ids, o.ID)
	m.history[o.ID] = []StatusEvent{{
		OrderID:   o.ID,
		To:        o.Status,
		ChangedAt: o.CreatedAt,
	}}
	return o, nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// List returns matching orders newest first.
func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]Order, error) {
	f = f.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Order{}
	skipped := 0
	for i := len(m.ids) - 1; i >= 0 && len(out) < f.Limit; i-- {
		o := m.orders[m.ids[i]]
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Mobile != "" && o.Mobile != f.Mobile {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, u StatusUpdate) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[u.OrderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	if o.Status != u.From {
		return Order{}, ErrStatusConflict
	}
	o.Status = u.To
	o.UpdatedAt = u.At
	m.orders[o.ID] = o
	m.history[o.ID] = append(m.history[o.ID], StatusEvent{
		OrderID:   o.ID,
		From:      u.From,
		To:        u.To,
		ChangedBy: u.ChangedBy,
		ChangedAt: u.At,
	})
	return o, nil
}

func (m *MemoryStore) History(_ context.Context, id uuid.UUID) ([]StatusEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.history[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]StatusEvent, len(h))
	copy(out, h)
	return out, nil
}
