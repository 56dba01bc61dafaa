package tokenkit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/dkovalenko/tokenkit/denylist"
	"github.com/dkovalenko/tokenkit/internal"
	"github.com/dkovalenko/tokenkit/internal/audit"
	"github.com/dkovalenko/tokenkit/internal/flows"
	"github.com/dkovalenko/tokenkit/jwt"
	"github.com/dkovalenko/tokenkit/store"
)

// Service is the token lifecycle engine: access-token issuance and
// validation, refresh rotation with reuse detection, and revocation.
// Instances are built once via Builder and safe for concurrent use.
type Service struct {
	config     Config
	store      store.Store
	denylist   denylist.Denylist
	jwtManager *jwt.Manager
	audit      *audit.Dispatcher
	metrics    *Metrics
	replay     *replayCache
	tracker    *issuedTracker
	clock      func() time.Time
	idGen      IDGenerator
	resolver   PermissionsResolver
}

// Close drains the audit dispatcher. Safe to call more than once.
func (s *Service) Close() {
	if s == nil {
		return
	}
	if s.audit != nil {
		s.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (s *Service) AuditDropped() uint64 {
	if s == nil {
		return 0
	}
	return s.audit.Dropped()
}

// MetricsSnapshot returns a copy of the service counters.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return s.metrics.Snapshot()
}

func (s *Service) metricInc(id MetricID) {
	if s == nil {
		return
	}
	s.metrics.Inc(id)
}

func (s *Service) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID, jti string,
	opts IssueOptions,
	opErr error,
	metadata func() map[string]string,
) {
	if s == nil || s.audit == nil {
		return
	}

	event := audit.Event{
		Timestamp:  s.clock(),
		EventType:  eventType,
		UserID:     userID,
		Jti:        jti,
		IP:         opts.IPAddress,
		DeviceInfo: opts.DeviceInfo,
		Success:    success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	s.audit.Emit(ctx, event)
}

/*
====================================
ISSUANCE
====================================
*/

// IssuePair creates a fresh access/refresh pair for userID, typically after
// primary authentication has succeeded elsewhere.
func (s *Service) IssuePair(ctx context.Context, userID string, opts IssueOptions) (*TokenPair, error) {
	if s == nil || s.store == nil {
		return nil, ErrServiceNotReady
	}
	if userID == "" {
		return nil, errors.New("user id required")
	}

	result := flows.RunIssue(ctx, userID, opts.DeviceInfo, opts.IPAddress, s.issueDeps(ctx, opts))
	if result.Failure != flows.IssueFailureNone {
		s.metricInc(MetricIssueFailure)
		err := s.mapIssueFailure(result)
		s.emitAudit(ctx, AuditEventIssue, false, userID, "", opts, err, nil)
		return nil, err
	}

	s.metricInc(MetricIssueSuccess)
	s.emitAudit(ctx, AuditEventIssue, true, userID, result.Record.Jti, opts, nil, nil)

	return s.pairFromIssue(result), nil
}

func (s *Service) issueDeps(ctx context.Context, opts IssueOptions) flows.IssueDeps {
	deps := flows.IssueDeps{
		Now:           s.clock,
		NewJti:        s.idGen,
		NewSecret:     internal.NewRefreshSecret,
		HashSecret:    internal.HashRefreshSecret,
		EncodeRefresh: internal.EncodeRefreshToken,
		RefreshTTL:    s.config.Refresh.TTL,
		CreateRecord:  s.store.Create,
		AccessTTL:     s.config.JWT.AccessTTL,
		IssueAccess: func(userID string, now time.Time) (string, string, error) {
			perms, err := s.resolvePermissions(ctx, userID, opts.Permissions)
			if err != nil {
				return "", "", err
			}
			accessJti := s.idGen()
			token, err := s.jwtManager.Issue(userID, accessJti, perms, opts.Extra, 0, now)
			if err != nil {
				return "", "", err
			}
			return token, accessJti, nil
		},
	}
	if s.tracker != nil {
		deps.TrackAccessJti = s.tracker.track
	}
	return deps
}

func (s *Service) resolvePermissions(ctx context.Context, userID string, explicit []string) ([]string, error) {
	if s.resolver == nil {
		return explicit, nil
	}
	resolved, err := s.resolver(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(explicit) == 0 {
		return resolved, nil
	}

	seen := make(map[string]struct{}, len(resolved)+len(explicit))
	merged := make([]string, 0, len(resolved)+len(explicit))
	for _, p := range append(resolved, explicit...) {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		merged = append(merged, p)
	}
	return merged, nil
}

func (s *Service) mapIssueFailure(result flows.IssueResult) error {
	if result.Failure == flows.IssueFailureCreate {
		if errors.Is(result.Err, store.ErrUnavailable) {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)
		}
	}
	return result.Err
}

func (s *Service) pairFromIssue(result flows.IssueResult) *TokenPair {
	return &TokenPair{
		AccessToken:      result.AccessToken,
		AccessExpiresAt:  result.Record.IssuedAt.Add(s.config.JWT.AccessTTL),
		RefreshToken:     result.RefreshToken,
		RefreshExpiresAt: result.Record.ExpiresAt,
	}
}

/*
====================================
VALIDATION
====================================
*/

// ValidateAccess verifies an access token's signature and claims and probes
// the revocation denylist. It never touches the refresh-token store. A
// denylist backend failure fails closed.
func (s *Service) ValidateAccess(ctx context.Context, accessToken string) (*AccessClaims, error) {
	if s == nil || s.jwtManager == nil {
		return nil, ErrServiceNotReady
	}
	if s.metrics.Enabled() {
		start := time.Now()
		defer func() { s.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	result := flows.RunValidate(ctx, accessToken, flows.ValidateDeps{
		ParseAccess:      s.jwtManager.Verify,
		DenylistContains: s.denylist.Contains,
	})

	switch result.Failure {
	case flows.ValidateFailureNone:
		s.metricInc(MetricValidateSuccess)
		return result.Claims, nil
	case flows.ValidateFailureCodec:
		s.metricInc(MetricValidateFailure)
		return nil, mapJWTError(result.Err)
	case flows.ValidateFailureDenylist:
		s.metricInc(MetricValidateFailure)
		return nil, fmt.Errorf("%w: %v", ErrDenylistUnavailable, result.Err)
	case flows.ValidateFailureRevoked:
		s.metricInc(MetricValidateDenied)
		s.emitAudit(ctx, AuditEventAccessDenied, false, result.Claims.Subject, result.Claims.ID, IssueOptions{}, ErrTokenRevoked, nil)
		return nil, ErrTokenRevoked
	default:
		return nil, ErrServiceNotReady
	}
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrBadSignature):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrWrongType):
		return ErrTokenWrongType
	default:
		return ErrTokenMalformed
	}
}

/*
====================================
ROTATION
====================================
*/

// RotateRefresh consumes a refresh token and returns its successor pair.
// Exactly one concurrent caller per token wins; the rest see
// ErrRefreshReuse (after the grace window, if one is configured) along with
// a cascade revocation of every active token the owner has.
func (s *Service) RotateRefresh(ctx context.Context, refreshToken string, opts IssueOptions) (*TokenPair, error) {
	if s == nil || s.store == nil {
		return nil, ErrServiceNotReady
	}

	var replayPair *TokenPair

	deps := flows.RotateDeps{
		Now:        s.clock,
		Decode:     internal.DecodeRefreshToken,
		HashSecret: internal.HashRefreshSecret,
		Claim:      s.store.ClaimForRotation,
		Mint: func(ctx context.Context, userID, deviceInfo, ipAddress string) flows.IssueResult {
			mintOpts := opts
			mintOpts.DeviceInfo = deviceInfo
			mintOpts.IPAddress = ipAddress
			return flows.RunIssue(ctx, userID, deviceInfo, ipAddress, s.issueDeps(ctx, mintOpts))
		},
		SetReplacedBy: s.store.SetReplacedBy,
		CascadeRevoke: func(ctx context.Context, userID string, now time.Time) (int64, error) {
			count, err := s.store.RevokeAllActiveForUser(ctx, userID, store.ReasonReuseDetected, "", now)
			if err != nil {
				return count, err
			}
			s.denyTracked(ctx, userID)
			return count, nil
		},
		GraceWindow: s.config.Refresh.RotationGraceWindow,
		ReplayLookup: func(oldJti string) (string, string, bool) {
			pair, ok := s.replay.get(oldJti)
			if !ok {
				return "", "", false
			}
			replayPair = &pair
			return pair.AccessToken, pair.RefreshToken, true
		},
		ReplayStore: func(oldJti string, minted flows.IssueResult) {
			s.replay.put(oldJti, *s.pairFromIssue(minted))
		},
		Warn: log.Printf,
	}

	result := flows.RunRotate(ctx, refreshToken, opts.DeviceInfo, opts.IPAddress, deps)

	switch result.Failure {
	case flows.RotateFailureNone:
		if result.ReplayServed {
			s.metricInc(MetricRotateGraceReplay)
			s.emitAudit(ctx, AuditEventRotateReplay, true, result.UserID, result.OldJti, opts, nil, nil)
			return replayPair, nil
		}

		pair := s.pairFromIssue(flows.IssueResult{
			Record:       result.Record,
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
		})

		s.metricInc(MetricRotateSuccess)
		s.emitAudit(ctx, AuditEventRotate, true, result.UserID, result.Record.Jti, opts, nil, func() map[string]string {
			return map[string]string{
				"previous_jti": result.OldJti,
			}
		})
		return pair, nil

	case flows.RotateFailureReuse:
		s.metricInc(MetricRotateReuseDetected)
		reuseErr := &ReuseDetectedError{
			UserID:  result.UserID,
			Jti:     result.OldJti,
			Revoked: result.Revoked,
		}
		s.emitAudit(ctx, AuditEventReuseDetected, false, result.UserID, result.OldJti, opts, reuseErr, func() map[string]string {
			return map[string]string{
				"revoked_count": strconv.FormatInt(result.Revoked, 10),
			}
		})
		return nil, reuseErr

	case flows.RotateFailureDecode, flows.RotateFailureNotFound:
		s.metricInc(MetricRotateFailure)
		s.emitAudit(ctx, AuditEventRotate, false, result.UserID, result.OldJti, opts, ErrRefreshInvalid, nil)
		return nil, ErrRefreshInvalid

	case flows.RotateFailureClaim:
		s.metricInc(MetricRotateFailure)
		err := fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)
		s.emitAudit(ctx, AuditEventRotate, false, result.UserID, result.OldJti, opts, err, nil)
		return nil, err

	case flows.RotateFailureMint:
		s.metricInc(MetricRotateFailure)
		s.emitAudit(ctx, AuditEventRotate, false, result.UserID, result.OldJti, opts, result.Err, nil)
		return nil, result.Err

	default:
		return nil, ErrServiceNotReady
	}
}

/*
====================================
REVOCATION
====================================
*/

// Revoke marks a single refresh token revoked. Idempotent: revoking an
// already-dead token succeeds and never counts as reuse.
func (s *Service) Revoke(ctx context.Context, refreshToken string, reason RevocationReason) error {
	if s == nil || s.store == nil {
		return ErrServiceNotReady
	}
	if reason == "" {
		reason = ReasonUserLogout
	}

	result := flows.RunRevoke(ctx, refreshToken, reason, flows.RevokeDeps{
		Now:        s.clock,
		Decode:     internal.DecodeRefreshToken,
		HashSecret: internal.HashRefreshSecret,
		Revoke:     s.store.Revoke,
	})

	switch result.Failure {
	case flows.RevokeFailureNone:
		if !result.Revoked {
			s.emitAudit(ctx, AuditEventRevoke, false, "", result.Jti, IssueOptions{}, ErrRefreshInvalid, nil)
			return ErrRefreshInvalid
		}
		s.metricInc(MetricRevokeSuccess)
		s.emitAudit(ctx, AuditEventRevoke, true, result.UserID, result.Jti, IssueOptions{}, nil, func() map[string]string {
			return map[string]string{
				"reason": string(reason),
			}
		})
		return nil
	case flows.RevokeFailureDecode:
		return ErrRefreshInvalid
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)
	}
}

// RevokeRefreshByJti revokes one refresh token by its identifier, without
// requiring the token itself. Administrative use: support tooling and
// incident response work from stored jtis, never from presented tokens.
func (s *Service) RevokeRefreshByJti(ctx context.Context, jti string, reason RevocationReason) error {
	if s == nil || s.store == nil {
		return ErrServiceNotReady
	}
	if jti == "" {
		return ErrRefreshInvalid
	}
	if reason == "" {
		reason = ReasonAdminRevoked
	}

	userID, ok, err := s.store.RevokeByJti(ctx, jti, reason, s.clock())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		s.emitAudit(ctx, AuditEventRevoke, false, "", jti, IssueOptions{}, ErrRefreshInvalid, nil)
		return ErrRefreshInvalid
	}

	s.metricInc(MetricRevokeSuccess)
	s.emitAudit(ctx, AuditEventRevoke, true, userID, jti, IssueOptions{}, nil, func() map[string]string {
		return map[string]string{
			"reason": string(reason),
		}
	})
	return nil
}

// RevokeAllForUser revokes every active refresh token userID holds, for
// example on password change or account compromise. When the caller supplies
// its current access token, that token's jti is denylisted so the credential
// dies immediately; other outstanding access tokens expire naturally unless
// zero-exposure tracking is enabled.
func (s *Service) RevokeAllForUser(ctx context.Context, userID string, reason RevocationReason, currentAccessToken string) (int64, error) {
	if s == nil || s.store == nil {
		return 0, ErrServiceNotReady
	}
	if userID == "" {
		return 0, errors.New("user id required")
	}
	if reason == "" {
		reason = ReasonAdminRevoked
	}

	result := flows.RunRevokeAll(ctx, userID, reason, currentAccessToken, flows.RevokeAllDeps{
		Now:       s.clock,
		RevokeAll: s.store.RevokeAllActiveForUser,
		ParseAccess: func(token string) (string, time.Time, bool) {
			claims, err := s.jwtManager.Verify(token)
			if err != nil || claims.ExpiresAt == nil {
				return "", time.Time{}, false
			}
			return claims.ID, claims.ExpiresAt.Time, true
		},
		DenyAccess: s.denylist.Add,
		DenyTracked: func(ctx context.Context, userID string) error {
			s.denyTracked(ctx, userID)
			return nil
		},
		Warn: log.Printf,
	})

	switch result.Failure {
	case flows.RevokeAllFailureNone:
		s.metricInc(MetricRevokeAll)
		s.emitAudit(ctx, AuditEventRevokeAll, true, userID, "", IssueOptions{}, nil, func() map[string]string {
			return map[string]string{
				"reason":        string(reason),
				"revoked_count": strconv.FormatInt(result.Count, 10),
			}
		})
		return result.Count, nil
	case flows.RevokeAllFailureDeny:
		err := fmt.Errorf("%w: %v", ErrDenylistUnavailable, result.Err)
		s.emitAudit(ctx, AuditEventRevokeAll, false, userID, "", IssueOptions{}, err, nil)
		return result.Count, err
	default:
		err := fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)
		s.emitAudit(ctx, AuditEventRevokeAll, false, userID, "", IssueOptions{}, err, nil)
		return 0, err
	}
}

func (s *Service) denyTracked(ctx context.Context, userID string) {
	if s.tracker == nil {
		return
	}
	for _, entry := range s.tracker.drain(userID) {
		if err := s.denylist.Add(ctx, entry.jti, entry.expiresAt); err != nil {
			log.Printf("tokenkit: denylisting tracked access token for user %s failed: %v", userID, err)
		}
	}
}

// DenyAccessToken pushes one verified access token onto the denylist without
// touching any refresh state. Administrative paths use this to kill a single
// leaked credential.
func (s *Service) DenyAccessToken(ctx context.Context, accessToken string) error {
	if s == nil || s.jwtManager == nil {
		return ErrServiceNotReady
	}

	claims, err := s.jwtManager.Verify(accessToken)
	if err != nil {
		return mapJWTError(err)
	}
	if claims.ExpiresAt == nil {
		return ErrTokenMalformed
	}

	if err := s.denylist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("%w: %v", ErrDenylistUnavailable, err)
	}

	s.metricInc(MetricAccessDenied)
	s.emitAudit(ctx, AuditEventAccessDenied, true, claims.Subject, claims.ID, IssueOptions{}, nil, nil)
	return nil
}

/*
====================================
ONE-TIME TOKENS AND MAINTENANCE
====================================
*/

// IssueOneTimeToken signs a single-purpose token (email verification,
// password reset) bound to the given kind. These reuse the access-token key
// material but are rejected by ValidateAccess via the type claim.
func (s *Service) IssueOneTimeToken(subject, kind string, ttl time.Duration) (string, error) {
	if s == nil || s.jwtManager == nil {
		return "", ErrServiceNotReady
	}
	token, err := s.jwtManager.IssueOneTime(subject, s.idGen(), kind, ttl, s.clock())
	if err != nil {
		return "", mapJWTError(err)
	}
	return token, nil
}

// VerifyOneTimeToken validates a single-purpose token against the signature,
// the kind, and the denylist, and returns its subject.
func (s *Service) VerifyOneTimeToken(ctx context.Context, token, kind string) (string, error) {
	if s == nil || s.jwtManager == nil {
		return "", ErrServiceNotReady
	}
	claims, err := s.jwtManager.VerifyOneTime(token, kind)
	if err != nil {
		return "", mapJWTError(err)
	}

	denied, err := s.denylist.Contains(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDenylistUnavailable, err)
	}
	if denied {
		return "", ErrTokenRevoked
	}
	return claims.Subject, nil
}

// RevokeOneTimeToken invalidates a single-purpose token before its natural
// expiry, for example when a newer password-reset link supersedes it. The
// jti is denylisted for the token's remaining lifetime.
func (s *Service) RevokeOneTimeToken(ctx context.Context, token, kind string) error {
	if s == nil || s.jwtManager == nil {
		return ErrServiceNotReady
	}

	claims, err := s.jwtManager.VerifyOneTime(token, kind)
	if err != nil {
		return mapJWTError(err)
	}
	if claims.ExpiresAt == nil {
		return ErrTokenMalformed
	}

	if err := s.denylist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("%w: %v", ErrDenylistUnavailable, err)
	}

	s.emitAudit(ctx, AuditEventOneTimeRevoke, true, claims.Subject, claims.ID, IssueOptions{}, nil, func() map[string]string {
		return map[string]string{
			"kind": claims.TokenType,
		}
	})
	return nil
}

// DeleteExpired removes refresh-token rows that are both expired and
// revoked. Intended to run from a periodic maintenance job, never on a
// request path.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, ErrServiceNotReady
	}
	count, err := s.store.DeleteExpired(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}
