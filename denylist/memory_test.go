package denylist

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryAddContains(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Add(ctx, "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("add: %v", err)
	}

	denied, err := m.Contains(ctx, "jti-1")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !denied {
		t.Fatal("expected jti-1 to be denied")
	}

	denied, err = m.Contains(ctx, "jti-2")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if denied {
		t.Fatal("expected jti-2 to be allowed")
	}
}

func TestMemoryPassiveExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	m := NewMemoryWithClock(clock)
	ctx := context.Background()

	if err := m.Add(ctx, "jti-1", now.Add(10*time.Second)); err != nil {
		t.Fatalf("add: %v", err)
	}

	now = now.Add(11 * time.Second)

	denied, err := m.Contains(ctx, "jti-1")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if denied {
		t.Fatal("expected expired entry to be allowed")
	}
	if got := m.Len(); got != 0 {
		t.Fatalf("expected no live entries, got %d", got)
	}
}

func TestMemoryAddPastExpiryIsNoOp(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Add(ctx, "jti-1", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("add: %v", err)
	}
	denied, err := m.Contains(ctx, "jti-1")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if denied {
		t.Fatal("expected already-expired entry to be ignored")
	}
}

func TestMemoryOpportunisticPurge(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	m := NewMemoryWithClock(clock)
	ctx := context.Background()

	for i := 0; i < purgeEvery-1; i++ {
		if err := m.Add(ctx, fmt.Sprintf("jti-%d", i), now.Add(time.Millisecond)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	now = now.Add(time.Second)

	// The write that crosses the purge threshold sweeps the dead entries.
	if err := m.Add(ctx, "jti-last", now.Add(time.Minute)); err != nil {
		t.Fatalf("add: %v", err)
	}

	m.mu.RLock()
	stored := len(m.entries)
	m.mu.RUnlock()
	if stored != 1 {
		t.Fatalf("expected purge to leave 1 entry, got %d", stored)
	}
}
