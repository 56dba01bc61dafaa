package tokenkit

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenExpired is returned when an access token is past its expiry.
	ErrTokenExpired = errors.New("access token expired")
	// ErrTokenMalformed is returned when an access token cannot be decoded
	// or lacks required claims.
	ErrTokenMalformed = errors.New("access token malformed")
	// ErrTokenWrongType is returned when a non-access token is presented on
	// the access validation path.
	ErrTokenWrongType = errors.New("wrong token type")
	// ErrBadSignature is returned when an access token's signature does not
	// verify.
	ErrBadSignature = errors.New("bad token signature")
	// ErrTokenRevoked is returned when an otherwise valid access token's jti
	// is on the revocation denylist.
	ErrTokenRevoked = errors.New("access token revoked")
	// ErrRefreshInvalid is returned when a refresh token is unknown,
	// expired, or malformed. The cases are deliberately indistinguishable.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshReuse is returned when an already-rotated refresh token is
	// presented again: a theft signal, not a validation failure.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrStoreUnavailable is returned when the refresh-token store backend
	// cannot be reached.
	ErrStoreUnavailable = errors.New("token store unavailable")
	// ErrDenylistUnavailable is returned when the denylist backend cannot be
	// reached. Validation fails closed on this error.
	ErrDenylistUnavailable = errors.New("denylist unavailable")
	// ErrServiceNotReady is returned when a Service method is called on an
	// incompletely built instance.
	ErrServiceNotReady = errors.New("service not initialized")
)

// ReuseDetectedError reports a refresh-token replay. It carries the affected
// user so callers can trigger out-of-band alerting, and unwraps to
// [ErrRefreshReuse] for errors.Is checks.
type ReuseDetectedError struct {
	UserID  string
	Jti     string
	Revoked int64 // refresh tokens revoked by the cascade
}

func (e *ReuseDetectedError) Error() string {
	return fmt.Sprintf("refresh token reuse detected for user %s (jti %s, %d tokens revoked)",
		e.UserID, e.Jti, e.Revoked)
}

func (e *ReuseDetectedError) Unwrap() error {
	return ErrRefreshReuse
}
