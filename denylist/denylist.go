package denylist

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps backend failures of an external denylist.
var ErrUnavailable = errors.New("denylist unavailable")

// Denylist is a TTL-bounded set of revoked access-token identifiers. An entry
// only needs to live as long as the token it blocks; expiry is passive.
type Denylist interface {
	// Add records jti as revoked until expiresAt. Entries at or past their
	// expiry are a no-op.
	Add(ctx context.Context, jti string, expiresAt time.Time) error

	// Contains reports whether jti is currently denied.
	Contains(ctx context.Context, jti string) (bool, error)
}
