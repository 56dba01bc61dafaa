package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *SQL {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and serializes
	// statements the way a server-side database would.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := NewSQL(db, DialectSQLite)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func createTestRecord(t *testing.T, s *SQL, jti, userID, secretHash string, now time.Time, ttl time.Duration) *Record {
	t.Helper()
	rec, err := s.Create(context.Background(), CreateParams{
		Jti:        jti,
		UserID:     userID,
		SecretHash: secretHash,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
		DeviceInfo: "cli",
		IPAddress:  "10.0.0.1",
	})
	require.NoError(t, err)
	return rec
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)

	createTestRecord(t, s, "jti-1", "user-1", "hash-1", now, time.Hour)

	rec, err := s.Get(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", rec.UserID)
	assert.Equal(t, "hash-1", rec.SecretHash)
	assert.False(t, rec.Revoked)
	assert.Empty(t, rec.ReplacedByJti)
	assert.Equal(t, "cli", rec.DeviceInfo)
	assert.True(t, rec.Active(now))
}

func TestGetUnknownJti(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClaimForRotation(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)
	createTestRecord(t, s, "jti-1", "user-1", "hash-1", now, time.Hour)

	result, err := s.ClaimForRotation(context.Background(), "jti-1", "hash-1", now)
	require.NoError(t, err)
	require.Equal(t, Claimed, result.Outcome)
	assert.True(t, result.Record.Revoked)
	assert.Equal(t, ReasonRotated, result.Record.RevocationReason)
	assert.False(t, result.Record.LastUsedAt.IsZero())
}

func TestClaimForRotationSecondClaimSeesRevoked(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)
	createTestRecord(t, s, "jti-1", "user-1", "hash-1", now, time.Hour)

	first, err := s.ClaimForRotation(context.Background(), "jti-1", "hash-1", now)
	require.NoError(t, err)
	require.Equal(t, Claimed, first.Outcome)

	second, err := s.ClaimForRotation(context.Background(), "jti-1", "hash-1", now)
	require.NoError(t, err)
	assert.Equal(t, ClaimAlreadyRevoked, second.Outcome)
	require.NotNil(t, second.Record)
	assert.Equal(t, "user-1", second.Record.UserID)
}

func TestClaimForRotationWrongSecretIsNotFound(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)
	createTestRecord(t, s, "jti-1", "user-1", "hash-1", now, time.Hour)

	result, err := s.ClaimForRotation(context.Background(), "jti-1", "wrong-hash", now)
	require.NoError(t, err)
	assert.Equal(t, ClaimNotFound, result.Outcome)

	// The record must remain active: a forged secret never consumes a token.
	rec, err := s.Get(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, rec.Active(now))
}

func TestClaimForRotationExpired(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)
	createTestRecord(t, s, "jti-1", "user-1", "hash-1", now.Add(-2*time.Hour), time.Hour)

	result, err := s.ClaimForRotation(context.Background(), "jti-1", "hash-1", now)
	require.NoError(t, err)
	assert.Equal(t, ClaimNotFound, result.Outcome)
}

func TestClaimForRotationUnknownJti(t *testing.T) {
	s := newTestStore(t)

	result, err := s.ClaimForRotation(context.Background(), "missing", "hash-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, ClaimNotFound, result.Outcome)
}

func TestClaimForRotationSingleWinner(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)
	createTestRecord(t, s, "jti-1", "user-1", "hash-1", now, time.Hour)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	outcomes := make(chan ClaimOutcome, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			result, err := s.ClaimForRotation(context.Background(), "jti-1", "hash-1", now)
			if err != nil {
				t.Errorf("claim failed: %v", err)
				return
			}
			outcomes <- result.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	claimed := 0
	revoked := 0
	for outcome := range outcomes {
		switch outcome {
		case Claimed:
			claimed++
		case ClaimAlreadyRevoked:
			revoked++
		default:
			t.Fatalf("unexpected outcome %v", outcome)
		}
	}
	assert.Equal(t, 1, claimed, "exactly one concurrent claim must win")
	assert.Equal(t, n-1, revoked)
}

func TestSetReplacedBy(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)
	createTestRecord(t, s, "jti-1", "user-1", "hash-1", now, time.Hour)
	createTestRecord(t, s, "jti-2", "user-1", "hash-2", now, time.Hour)

	require.NoError(t, s.SetReplacedBy(context.Background(), "jti-1", "jti-2"))

	rec, err := s.Get(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "jti-2", rec.ReplacedByJti)

	assert.ErrorIs(t, s.SetReplacedBy(context.Background(), "missing", "jti-2"), ErrNotFound)
}

func TestRevokeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)
	createTestRecord(t, s, "jti-1", "user-1", "hash-1", now, time.Hour)

	userID, ok, err := s.Revoke(context.Background(), "jti-1", "hash-1", ReasonUserLogout, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)

	userID, ok, err = s.Revoke(context.Background(), "jti-1", "hash-1", ReasonUserLogout, now)
	require.NoError(t, err)
	assert.True(t, ok, "revoking an already-revoked record must succeed")
	assert.Equal(t, "user-1", userID)

	rec, err := s.Get(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.Equal(t, ReasonUserLogout, rec.RevocationReason)
}

func TestRevokeWrongSecretFails(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)
	createTestRecord(t, s, "jti-1", "user-1", "hash-1", now, time.Hour)

	userID, ok, err := s.Revoke(context.Background(), "jti-1", "wrong-hash", ReasonUserLogout, now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, userID, "a failed revoke must not leak the owner")

	_, ok, err = s.Revoke(context.Background(), "missing", "hash-1", ReasonUserLogout, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRevokeByJti(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)
	createTestRecord(t, s, "jti-1", "user-1", "hash-1", now, time.Hour)

	userID, ok, err := s.RevokeByJti(context.Background(), "jti-1", ReasonAdminRevoked, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)

	_, ok, err = s.RevokeByJti(context.Background(), "missing", ReasonAdminRevoked, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRevokeAllActiveForUser(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)

	for i := 0; i < 3; i++ {
		createTestRecord(t, s, fmt.Sprintf("jti-%d", i), "user-1", "hash", now, time.Hour)
	}
	createTestRecord(t, s, "jti-other", "user-2", "hash", now, time.Hour)
	// Already expired: not counted.
	createTestRecord(t, s, "jti-expired", "user-1", "hash", now.Add(-2*time.Hour), time.Hour)

	count, err := s.RevokeAllActiveForUser(context.Background(), "user-1", ReasonPasswordChanged, "jti-0", now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	kept, err := s.Get(context.Background(), "jti-0")
	require.NoError(t, err)
	assert.True(t, kept.Active(now), "excluded jti must stay active")

	other, err := s.Get(context.Background(), "jti-other")
	require.NoError(t, err)
	assert.True(t, other.Active(now), "other users must be untouched")

	revoked, err := s.Get(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.Equal(t, ReasonPasswordChanged, revoked.RevocationReason)
}

func TestDeleteExpired(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)

	// Expired and revoked: deleted.
	createTestRecord(t, s, "jti-dead", "user-1", "hash", now.Add(-3*time.Hour), time.Hour)
	_, _, err := s.RevokeByJti(context.Background(), "jti-dead", ReasonUserLogout, now)
	require.NoError(t, err)

	// Expired but never revoked: kept, it still matters for forensics.
	createTestRecord(t, s, "jti-stale", "user-1", "hash", now.Add(-3*time.Hour), time.Hour)

	// Active: kept.
	createTestRecord(t, s, "jti-live", "user-1", "hash", now, time.Hour)

	count, err := s.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = s.Get(context.Background(), "jti-dead")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(context.Background(), "jti-stale")
	assert.NoError(t, err)
}
