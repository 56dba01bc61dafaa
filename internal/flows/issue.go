package flows

import (
	"context"
	"time"

	"github.com/dkovalenko/tokenkit/internal"
	"github.com/dkovalenko/tokenkit/store"
)

// IssueFailureKind classifies issuance failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureSecret
	IssueFailureCreate
	IssueFailureAccess
	IssueFailureEncode
)

// IssueResult carries the issued pair or failure metadata.
type IssueResult struct {
	Failure      IssueFailureKind
	Err          error
	Record       *store.Record
	AccessJti    string
	AccessToken  string
	RefreshToken string
}

// IssueDeps captures issuance flow dependencies.
type IssueDeps struct {
	Now           func() time.Time
	NewJti        func() string
	NewSecret     func() (internal.RefreshSecret, error)
	HashSecret    func(internal.RefreshSecret) string
	EncodeRefresh func(string, internal.RefreshSecret) (string, error)
	RefreshTTL    time.Duration
	CreateRecord  func(context.Context, store.CreateParams) (*store.Record, error)
	// IssueAccess signs an access token and returns (token, accessJti).
	IssueAccess func(userID string, now time.Time) (string, string, error)
	// TrackAccessJti is set only in zero-exposure mode: every issued access
	// jti is registered so an account-wide revocation can deny tokens that
	// are still outstanding. Nil otherwise.
	TrackAccessJti func(userID, jti string, expiresAt time.Time)
	AccessTTL      time.Duration
}

// RunIssue creates a fresh refresh-token record and a matching access token.
// It is the only flow that does not consume an existing token.
func RunIssue(ctx context.Context, userID, deviceInfo, ipAddress string, deps IssueDeps) IssueResult {
	now := deps.Now()

	secret, err := deps.NewSecret()
	if err != nil {
		return IssueResult{Failure: IssueFailureSecret, Err: err}
	}

	jti := deps.NewJti()
	record, err := deps.CreateRecord(ctx, store.CreateParams{
		Jti:        jti,
		UserID:     userID,
		SecretHash: deps.HashSecret(secret),
		IssuedAt:   now,
		ExpiresAt:  now.Add(deps.RefreshTTL),
		DeviceInfo: deviceInfo,
		IPAddress:  ipAddress,
	})
	if err != nil {
		return IssueResult{Failure: IssueFailureCreate, Err: err}
	}

	access, accessJti, err := deps.IssueAccess(userID, now)
	if err != nil {
		return IssueResult{Failure: IssueFailureAccess, Err: err, Record: record}
	}

	refresh, err := deps.EncodeRefresh(jti, secret)
	if err != nil {
		return IssueResult{Failure: IssueFailureEncode, Err: err, Record: record}
	}

	if deps.TrackAccessJti != nil {
		deps.TrackAccessJti(userID, accessJti, now.Add(deps.AccessTTL))
	}

	return IssueResult{
		Record:       record,
		AccessJti:    accessJti,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
