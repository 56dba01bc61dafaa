package tokenkit

import (
	"sync"
	"time"
)

// issuedTracker remembers the access jtis issued per user so an account-wide
// revocation can denylist tokens that are still outstanding. Only active when
// DenylistConfig.TrackIssuedAccess is set; memory cost is bounded by the
// access TTL since expired entries are dropped on every write.
type issuedTracker struct {
	mu     sync.Mutex
	byUser map[string][]issuedJti
	now    func() time.Time
}

type issuedJti struct {
	jti       string
	expiresAt time.Time
}

func newIssuedTracker(now func() time.Time) *issuedTracker {
	return &issuedTracker{
		byUser: make(map[string][]issuedJti),
		now:    now,
	}
}

func (t *issuedTracker) track(userID, jti string, expiresAt time.Time) {
	if t == nil {
		return
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	live := t.byUser[userID][:0]
	for _, e := range t.byUser[userID] {
		if e.expiresAt.After(now) {
			live = append(live, e)
		}
	}
	t.byUser[userID] = append(live, issuedJti{jti: jti, expiresAt: expiresAt})
}

// drain removes and returns the user's outstanding access jtis. The caller
// pushes them into the denylist.
func (t *issuedTracker) drain(userID string) []issuedJti {
	if t == nil {
		return nil
	}
	now := t.now()

	t.mu.Lock()
	entries := t.byUser[userID]
	delete(t.byUser, userID)
	t.mu.Unlock()

	live := entries[:0]
	for _, e := range entries {
		if e.expiresAt.After(now) {
			live = append(live, e)
		}
	}
	return live
}
