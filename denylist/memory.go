package denylist

import (
	"context"
	"sync"
	"time"
)

// purgeEvery bounds how often Add scans for dead entries.
const purgeEvery = 256

// Memory is a process-local denylist for single-instance deployments and
// tests. Expiry is passive: entries are skipped once stale and physically
// removed by an opportunistic purge piggybacked on writes.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	writes  int
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// NewMemoryWithClock is for tests that need deterministic expiry.
func NewMemoryWithClock(now func() time.Time) *Memory {
	m := NewMemory()
	m.now = now
	return m
}

func (m *Memory) Add(_ context.Context, jti string, expiresAt time.Time) error {
	now := m.now()
	if !expiresAt.After(now) {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[jti] = expiresAt
	m.writes++
	if m.writes >= purgeEvery {
		m.writes = 0
		for k, exp := range m.entries {
			if !exp.After(now) {
				delete(m.entries, k)
			}
		}
	}
	return nil
}

func (m *Memory) Contains(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	exp, ok := m.entries[jti]
	m.mu.RUnlock()

	return ok && exp.After(m.now()), nil
}

// Len reports live entries; used by tests and capacity monitoring.
func (m *Memory) Len() int {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, exp := range m.entries {
		if exp.After(now) {
			n++
		}
	}
	return n
}
