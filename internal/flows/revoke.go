package flows

import (
	"context"
	"time"

	"github.com/dkovalenko/tokenkit/internal"
	"github.com/dkovalenko/tokenkit/store"
)

// RevokeFailureKind classifies single-token revocation failures.
type RevokeFailureKind int

const (
	RevokeFailureNone RevokeFailureKind = iota
	RevokeFailureDecode
	RevokeFailureStore
)

// RevokeResult reports whether the record was (or already had been) revoked
// and, on success, which user owned it.
type RevokeResult struct {
	Failure RevokeFailureKind
	Err     error
	Jti     string
	UserID  string
	Revoked bool
}

// RevokeDeps captures single-token revocation dependencies.
type RevokeDeps struct {
	Now        func() time.Time
	Decode     func(string) (string, internal.RefreshSecret, error)
	HashSecret func(internal.RefreshSecret) string
	Revoke     func(ctx context.Context, jti, secretHash string, reason store.Reason, now time.Time) (string, bool, error)
}

// RunRevoke marks one refresh token revoked. Idempotent by contract: a token
// that is already revoked reports success and is never treated as a replay.
func RunRevoke(ctx context.Context, refreshToken string, reason store.Reason, deps RevokeDeps) RevokeResult {
	jti, secret, err := deps.Decode(refreshToken)
	if err != nil {
		return RevokeResult{Failure: RevokeFailureDecode, Err: err}
	}

	userID, ok, err := deps.Revoke(ctx, jti, deps.HashSecret(secret), reason, deps.Now())
	if err != nil {
		return RevokeResult{Failure: RevokeFailureStore, Err: err, Jti: jti}
	}
	return RevokeResult{Jti: jti, UserID: userID, Revoked: ok}
}

// RevokeAllFailureKind classifies account-wide revocation failures.
type RevokeAllFailureKind int

const (
	RevokeAllFailureNone RevokeAllFailureKind = iota
	RevokeAllFailureStore
	RevokeAllFailureDeny
)

// RevokeAllResult reports how many refresh tokens were revoked and whether
// the presented access token was denylisted.
type RevokeAllResult struct {
	Failure      RevokeAllFailureKind
	Err          error
	Count        int64
	AccessDenied bool
}

// RevokeAllDeps captures account-wide revocation dependencies.
type RevokeAllDeps struct {
	Now       func() time.Time
	RevokeAll func(ctx context.Context, userID string, reason store.Reason, excludeJti string, now time.Time) (int64, error)
	// ParseAccess extracts (jti, expiresAt) from a presented access token;
	// verification failures are reported via ok=false and ignored, since the
	// bulk revoke must proceed regardless.
	ParseAccess func(token string) (jti string, expiresAt time.Time, ok bool)
	DenyAccess  func(ctx context.Context, jti string, expiresAt time.Time) error
	// DenyTracked denies every registered outstanding access jti for the
	// user (zero-exposure mode). Nil otherwise.
	DenyTracked func(ctx context.Context, userID string) error
	Warn        func(string, ...any)
}

// RunRevokeAll revokes every active refresh token the user has. When a
// current access token is supplied, its jti is pushed into the denylist so
// the caller's own credential dies immediately rather than at natural expiry.
func RunRevokeAll(ctx context.Context, userID string, reason store.Reason, currentAccessToken string, deps RevokeAllDeps) RevokeAllResult {
	count, err := deps.RevokeAll(ctx, userID, reason, "", deps.Now())
	if err != nil {
		return RevokeAllResult{Failure: RevokeAllFailureStore, Err: err}
	}

	result := RevokeAllResult{Count: count}

	if currentAccessToken != "" {
		if jti, expiresAt, ok := deps.ParseAccess(currentAccessToken); ok {
			if err := deps.DenyAccess(ctx, jti, expiresAt); err != nil {
				result.Failure = RevokeAllFailureDeny
				result.Err = err
				return result
			}
			result.AccessDenied = true
		}
	}

	if deps.DenyTracked != nil {
		if err := deps.DenyTracked(ctx, userID); err != nil && deps.Warn != nil {
			deps.Warn("tokenkit: denying tracked access tokens for user %s failed: %v", userID, err)
		}
	}

	return result
}
