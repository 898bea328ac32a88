// Package jobs keeps a record of background job handles handed out to
// callers, so that ids can be recovered after the fact. It never stores
// job output; retrieval always goes to the backend.
package jobs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultMemoryCapacity bounds the number of entries a MemoryLedger keeps.
const DefaultMemoryCapacity = 1000

// Entry is one recorded job.
type Entry struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ledger records job ids and their last observed status.
type Ledger interface {
	// Record inserts the job or updates its status. CreatedAt is set on
	// first sight only.
	Record(ctx context.Context, id, status string) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	Close() error
}

// MemoryLedger is an in-process Ledger. The oldest entries are evicted
// once capacity is reached.
type MemoryLedger struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	order    []string // insertion order, oldest first
	capacity int
	now      func() time.Time
}

// NewMemoryLedger creates a MemoryLedger; capacity <= 0 selects the default.
func NewMemoryLedger(capacity int) *MemoryLedger {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryLedger{
		entries:  make(map[string]*Entry),
		capacity: capacity,
		now:      time.Now,
	}
}

func (m *MemoryLedger) Record(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[id]; ok {
		e.Status = status
		e.UpdatedAt = now
		return nil
	}

	if len(m.order) >= m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.entries[id] = &Entry{ID: id, Status: status, CreatedAt: now, UpdatedAt: now}
	m.order = append(m.order, id)
	return nil
}

func (m *MemoryLedger) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, *m.entries[m.order[i]])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryLedger) Close() error { return nil }
