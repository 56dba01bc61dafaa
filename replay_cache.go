package tokenkit

import (
	"sync"
	"time"
)

// replayCache remembers, per rotated jti, the pair that rotation produced so
// a benign duplicate inside the grace window can be answered idempotently.
// Entries live exactly one grace window; the cache never grows past the
// rotation rate times that window.
type replayCache struct {
	mu      sync.Mutex
	entries map[string]replayEntry
	ttl     time.Duration
	now     func() time.Time
}

type replayEntry struct {
	pair      TokenPair
	expiresAt time.Time
}

func newReplayCache(ttl time.Duration, now func() time.Time) *replayCache {
	if ttl <= 0 {
		return nil
	}
	return &replayCache{
		entries: make(map[string]replayEntry),
		ttl:     ttl,
		now:     now,
	}
}

func (c *replayCache) put(jti string, pair TokenPair) {
	if c == nil {
		return
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if !e.expiresAt.After(now) {
			delete(c.entries, k)
		}
	}
	c.entries[jti] = replayEntry{pair: pair, expiresAt: now.Add(c.ttl)}
}

func (c *replayCache) get(jti string) (TokenPair, bool) {
	if c == nil {
		return TokenPair{}, false
	}

	c.mu.Lock()
	e, ok := c.entries[jti]
	c.mu.Unlock()

	if !ok || !e.expiresAt.After(c.now()) {
		return TokenPair{}, false
	}
	return e.pair, true
}
