package flows

import (
	"context"
	"time"

	"github.com/dkovalenko/tokenkit/internal"
	"github.com/dkovalenko/tokenkit/store"
)

// RotateFailureKind classifies rotation failures for root-level mapping.
type RotateFailureKind int

const (
	RotateFailureNone RotateFailureKind = iota
	RotateFailureDecode
	RotateFailureClaim
	RotateFailureNotFound
	RotateFailureReuse
	RotateFailureMint
)

// RotateResult carries the new pair, or failure metadata. On
// RotateFailureReuse, UserID identifies the account whose tokens were
// cascade-revoked.
type RotateResult struct {
	Failure      RotateFailureKind
	Err          error
	UserID       string
	OldJti       string
	Revoked      int64 // tokens revoked by the reuse cascade
	ReplayServed bool  // grace window answered a duplicate idempotently
	Record       *store.Record
	AccessJti    string
	AccessToken  string
	RefreshToken string
}

// RotateDeps captures rotation flow dependencies.
type RotateDeps struct {
	Now        func() time.Time
	Decode     func(string) (string, internal.RefreshSecret, error)
	HashSecret func(internal.RefreshSecret) string
	Claim      func(ctx context.Context, jti, secretHash string, now time.Time) (store.ClaimResult, error)
	// Mint creates the successor record plus access token (the issue flow,
	// bound to the claimed record's user).
	Mint          func(ctx context.Context, userID, deviceInfo, ipAddress string) IssueResult
	SetReplacedBy func(ctx context.Context, jti, successorJti string) error
	CascadeRevoke func(ctx context.Context, userID string, now time.Time) (int64, error)
	// GraceWindow bounds the idempotent-duplicate exception; zero disables it.
	GraceWindow  time.Duration
	ReplayLookup func(oldJti string) (access, refresh string, ok bool)
	// ReplayStore records the minted successor keyed by the predecessor jti
	// so a duplicate claim inside the grace window can be answered.
	ReplayStore func(oldJti string, minted IssueResult)
	Warn        func(string, ...any)
}

// RunRotate executes refresh rotation with reuse detection. A second
// presentation of an already-rotated token outside the grace window revokes
// every active token the owner has.
func RunRotate(ctx context.Context, refreshToken, deviceInfo, ipAddress string, deps RotateDeps) RotateResult {
	jti, secret, err := deps.Decode(refreshToken)
	if err != nil {
		return RotateResult{Failure: RotateFailureDecode, Err: err}
	}

	now := deps.Now()
	claim, err := deps.Claim(ctx, jti, deps.HashSecret(secret), now)
	if err != nil {
		return RotateResult{Failure: RotateFailureClaim, Err: err, OldJti: jti}
	}

	switch claim.Outcome {
	case store.ClaimNotFound:
		// Unknown, expired, or wrong secret: one indistinguishable failure.
		return RotateResult{Failure: RotateFailureNotFound, OldJti: jti}

	case store.ClaimAlreadyRevoked:
		record := claim.Record

		// Only a rotated token presented again is a theft signal. A token
		// revoked by logout or a previous cascade is merely dead; the family
		// is already handled and re-escalating would spam alerts.
		if record.RevocationReason != store.ReasonRotated {
			return RotateResult{Failure: RotateFailureNotFound, OldJti: jti}
		}

		if deps.GraceWindow > 0 &&
			record.ReplacedByJti != "" &&
			now.Sub(record.RevokedAt) <= deps.GraceWindow {
			if access, refresh, ok := deps.ReplayLookup(jti); ok {
				return RotateResult{
					UserID:       record.UserID,
					OldJti:       jti,
					ReplayServed: true,
					AccessToken:  access,
					RefreshToken: refresh,
				}
			}
		}

		revoked, cascadeErr := deps.CascadeRevoke(ctx, record.UserID, now)
		if cascadeErr != nil && deps.Warn != nil {
			deps.Warn("tokenkit: reuse cascade failed for user %s: %v", record.UserID, cascadeErr)
		}
		return RotateResult{
			Failure: RotateFailureReuse,
			UserID:  record.UserID,
			OldJti:  jti,
			Revoked: revoked,
			Record:  record,
		}

	case store.Claimed:
		record := claim.Record
		minted := deps.Mint(ctx, record.UserID, deviceInfo, ipAddress)
		if minted.Failure != IssueFailureNone {
			return RotateResult{
				Failure: RotateFailureMint,
				Err:     minted.Err,
				UserID:  record.UserID,
				OldJti:  jti,
			}
		}

		if err := deps.SetReplacedBy(ctx, jti, minted.Record.Jti); err != nil && deps.Warn != nil {
			// The successor is already live; a broken family link only
			// degrades the grace window and audit chain.
			deps.Warn("tokenkit: linking %s to successor failed: %v", jti, err)
		}
		if deps.GraceWindow > 0 && deps.ReplayStore != nil {
			deps.ReplayStore(jti, minted)
		}

		return RotateResult{
			UserID:       record.UserID,
			OldJti:       jti,
			Record:       minted.Record,
			AccessJti:    minted.AccessJti,
			AccessToken:  minted.AccessToken,
			RefreshToken: minted.RefreshToken,
		}

	default:
		return RotateResult{Failure: RotateFailureClaim, Err: store.ErrUnavailable, OldJti: jti}
	}
}
