package pricing

import (
	"errors"
	"time"

	"go.uber.org/atomic"
)

// Snapshot is a read-only pairing of a price table and a fee schedule.
// Orders are priced against exactly one snapshot.
type Snapshot struct {
	Table    *Table
	Fees     *FeeSchedule
	LoadedAt time.Time
}

// NewSnapshot validates the schedule and bundles it with the table.
func NewSnapshot(table *Table, fees *FeeSchedule, loadedAt time.Time) (*Snapshot, error) {
	if table == nil || fees == nil {
		return nil, errors.New("pricing snapshot needs both a table and a fee schedule")
	}
	if err := fees.Validate(); err != nil {
		return nil, err
	}
	return &Snapshot{Table: table, Fees: fees, LoadedAt: loadedAt}, nil
}

// Source hands out the current snapshot. Replacing the snapshot never
// affects callers already holding the previous one.
type Source struct {
	current *atomic.Pointer[Snapshot]
}

// NewSource creates a Source serving initial.
func NewSource(initial *Snapshot) *Source {
	return &Source{current: atomic.NewPointer(initial)}
}

// Current returns the active snapshot.
func (s *Source) Current() *Snapshot {
	return s.current.Load()
}

// Replace swaps in a new snapshot and returns the previous one.
func (s *Source) Replace(next *Snapshot) *Snapshot {
	return s.current.Swap(next)
}
