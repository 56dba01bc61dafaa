package store

import "time"

// Reason records why a refresh token stopped being usable. The value is
// persisted verbatim; treat the constants as a wire format.
type Reason string

const (
	ReasonRotated         Reason = "rotated"
	ReasonUserLogout      Reason = "user_logout"
	ReasonPasswordChanged Reason = "password_changed"
	ReasonReuseDetected   Reason = "reuse_detected"
	ReasonAdminRevoked    Reason = "admin_revoked"
)

// Record is one row of the refresh_tokens table: a single issued refresh
// token and its revocation state. Revoked is monotonic; a revoked record
// never becomes active again.
type Record struct {
	Jti              string
	UserID           string
	SecretHash       string
	IssuedAt         time.Time
	ExpiresAt        time.Time
	Revoked          bool
	RevokedAt        time.Time // zero while active
	RevocationReason Reason
	ReplacedByJti    string
	DeviceInfo       string
	IPAddress        string
	LastUsedAt       time.Time // set once, at rotation
}

// Active reports whether the record can still be rotated at the given time.
func (r *Record) Active(now time.Time) bool {
	return r != nil && !r.Revoked && r.ExpiresAt.After(now)
}

// ClaimOutcome classifies the result of ClaimForRotation.
type ClaimOutcome int

const (
	// ClaimNotFound covers unknown, expired, and secret-mismatch tokens.
	// They are deliberately indistinguishable to the caller.
	ClaimNotFound ClaimOutcome = iota
	// ClaimAlreadyRevoked means a genuine token was presented a second time.
	ClaimAlreadyRevoked
	// Claimed means the token was active and is now marked rotated.
	Claimed
)

// ClaimResult carries the claim outcome and, for Claimed and
// ClaimAlreadyRevoked, the matching record.
type ClaimResult struct {
	Outcome ClaimOutcome
	Record  *Record
}

// CreateParams is the input for Store.Create. Jti and SecretHash are supplied
// by the caller so the persisted row and the encoded client token agree.
type CreateParams struct {
	Jti        string
	UserID     string
	SecretHash string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	DeviceInfo string
	IPAddress  string
}
