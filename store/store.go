package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record matches the requested jti.
var ErrNotFound = errors.New("refresh token not found")

// ErrUnavailable wraps backend failures so callers can distinguish
// infrastructure problems from protocol outcomes.
var ErrUnavailable = errors.New("token store unavailable")

// Store is the persistence contract for refresh-token records. It is the
// single source of truth for the rotation state machine; every mutating
// operation must be atomic against the backing database.
type Store interface {
	// Create inserts a new active record.
	Create(ctx context.Context, params CreateParams) (*Record, error)

	// Get fetches a record by jti, or ErrNotFound.
	Get(ctx context.Context, jti string) (*Record, error)

	// ClaimForRotation atomically flips an active, unexpired record whose
	// secret hash matches to revoked/rotated and stamps last_used_at. Under
	// concurrent calls for one jti exactly one caller observes Claimed.
	ClaimForRotation(ctx context.Context, jti, secretHash string, now time.Time) (ClaimResult, error)

	// SetReplacedBy links a rotated record to its successor.
	SetReplacedBy(ctx context.Context, jti, successorJti string) error

	// Revoke marks one record revoked and reports its owner. Idempotent:
	// revoking an already-revoked record reports success. Returns ok=false
	// only when the record does not exist or the secret hash does not match.
	Revoke(ctx context.Context, jti, secretHash string, reason Reason, now time.Time) (userID string, ok bool, err error)

	// RevokeByJti revokes without a secret check, for administrative
	// tooling that only knows the identifier.
	RevokeByJti(ctx context.Context, jti string, reason Reason, now time.Time) (userID string, ok bool, err error)

	// RevokeAllActiveForUser bulk-revokes every active record owned by
	// userID except excludeJti (empty = none). Returns rows affected.
	RevokeAllActiveForUser(ctx context.Context, userID string, reason Reason, excludeJti string, now time.Time) (int64, error)

	// DeleteExpired removes rows that are both expired and revoked.
	// Maintenance only; never called on a request path.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
