package tokenkit

import (
	"context"
	"time"

	"github.com/dkovalenko/tokenkit/internal/audit"
	"github.com/dkovalenko/tokenkit/jwt"
	"github.com/dkovalenko/tokenkit/store"
)

// TokenPair is what a successful issuance or rotation returns.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// IssueOptions carries optional per-issuance metadata recorded alongside the
// refresh token.
type IssueOptions struct {
	DeviceInfo string
	IPAddress  string
	// Permissions is embedded into the access token claims when no resolver
	// is configured, or merged with the resolver's output when one is.
	Permissions []string
	// Extra claims merged into the access token. Reserved claim names are
	// ignored.
	Extra map[string]any
}

// AccessClaims re-exports the verified access-token claims.
type AccessClaims = jwt.AccessClaims

// Revocation reasons, re-exported for callers that inspect stored records.
type RevocationReason = store.Reason

const (
	ReasonRotated         = store.ReasonRotated
	ReasonUserLogout      = store.ReasonUserLogout
	ReasonPasswordChanged = store.ReasonPasswordChanged
	ReasonReuseDetected   = store.ReasonReuseDetected
	ReasonAdminRevoked    = store.ReasonAdminRevoked
)

// AuditEvent is the event shape delivered to audit sinks.
type AuditEvent = audit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = audit.Sink

// PermissionsResolver supplies the permission claims for a user at issuance
// time. Returning an error aborts issuance.
type PermissionsResolver func(ctx context.Context, userID string) ([]string, error)

// IDGenerator produces jti values. The default is uuid.NewString.
type IDGenerator func() string
