package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Dialect selects placeholder style and bootstrap behavior for the SQL store.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// SQL implements Store over database/sql. It works against Postgres (lib/pq)
// and SQLite (modernc.org/sqlite); the conditional-UPDATE claim relies only
// on single-statement atomicity, which both engines guarantee.
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQL(db *sql.DB, dialect Dialect) *SQL {
	return &SQL{db: db, dialect: dialect}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS refresh_tokens (
	jti TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	secret_hash TEXT NOT NULL,
	issued_at BIGINT NOT NULL,
	expires_at BIGINT NOT NULL,
	is_revoked BOOLEAN NOT NULL DEFAULT FALSE,
	revoked_at BIGINT,
	revocation_reason TEXT,
	replaced_by_jti TEXT,
	device_info TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL DEFAULT '',
	last_used_at BIGINT
);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_active ON refresh_tokens(user_id, is_revoked);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires_at ON refresh_tokens(expires_at);
`

// Init bootstraps the schema for SQLite deployments and verifies
// connectivity for Postgres, where migrations own the schema.
func (s *SQL) Init(ctx context.Context) error {
	if s.dialect == DialectPostgres {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	}
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// rebind converts ?-style placeholders to $n for Postgres.
func (s *SQL) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) Create(ctx context.Context, params CreateParams) (*Record, error) {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO refresh_tokens (jti, user_id, secret_hash, issued_at, expires_at, device_info, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		params.Jti, params.UserID, params.SecretHash,
		params.IssuedAt.Unix(), params.ExpiresAt.Unix(),
		params.DeviceInfo, params.IPAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Record{
		Jti:        params.Jti,
		UserID:     params.UserID,
		SecretHash: params.SecretHash,
		IssuedAt:   params.IssuedAt,
		ExpiresAt:  params.ExpiresAt,
		DeviceInfo: params.DeviceInfo,
		IPAddress:  params.IPAddress,
	}, nil
}

const recordColumns = `jti, user_id, secret_hash, issued_at, expires_at, is_revoked,
	revoked_at, revocation_reason, replaced_by_jti, device_info, ip_address, last_used_at`

func (s *SQL) Get(ctx context.Context, jti string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+recordColumns+` FROM refresh_tokens WHERE jti = ?`), jti)
	return scanRecord(row)
}

func (s *SQL) ClaimForRotation(ctx context.Context, jti, secretHash string, now time.Time) (ClaimResult, error) {
	// The claim itself: one conditional UPDATE, row count decides the winner.
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE refresh_tokens
		SET is_revoked = TRUE, revoked_at = ?, revocation_reason = ?, last_used_at = ?
		WHERE jti = ? AND secret_hash = ? AND is_revoked = FALSE AND expires_at > ?`),
		now.Unix(), string(ReasonRotated), now.Unix(),
		jti, secretHash, now.Unix(),
	)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ClaimResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if affected == 1 {
		rec, err := s.Get(ctx, jti)
		if err != nil {
			return ClaimResult{}, err
		}
		return ClaimResult{Outcome: Claimed, Record: rec}, nil
	}

	// Lost or invalid claim; classify by reading the row. The record is
	// already settled at this point, so the read races nothing.
	rec, err := s.Get(ctx, jti)
	if err != nil {
		if err == ErrNotFound {
			return ClaimResult{Outcome: ClaimNotFound}, nil
		}
		return ClaimResult{}, err
	}
	// A wrong secret must not expose revocation state: only holders of the
	// genuine token can trigger the reuse escalation.
	if rec.SecretHash != secretHash {
		return ClaimResult{Outcome: ClaimNotFound}, nil
	}
	if rec.Revoked {
		return ClaimResult{Outcome: ClaimAlreadyRevoked, Record: rec}, nil
	}
	// Active but expired.
	return ClaimResult{Outcome: ClaimNotFound}, nil
}

func (s *SQL) SetReplacedBy(ctx context.Context, jti, successorJti string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE refresh_tokens SET replaced_by_jti = ? WHERE jti = ?`),
		successorJti, jti,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) Revoke(ctx context.Context, jti, secretHash string, reason Reason, now time.Time) (string, bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE refresh_tokens
		SET is_revoked = TRUE, revoked_at = ?, revocation_reason = ?
		WHERE jti = ? AND secret_hash = ? AND is_revoked = FALSE`),
		now.Unix(), string(reason), jti, secretHash,
	)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Read the row either way: the winner needs the owner for attribution,
	// and an already-revoked record counts as success while an unknown jti
	// or wrong secret does not.
	rec, err := s.Get(ctx, jti)
	if err != nil {
		if err == ErrNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	if affected > 0 {
		return rec.UserID, true, nil
	}
	if rec.SecretHash != secretHash {
		return "", false, nil
	}
	return rec.UserID, true, nil
}

func (s *SQL) RevokeByJti(ctx context.Context, jti string, reason Reason, now time.Time) (string, bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE refresh_tokens
		SET is_revoked = TRUE, revoked_at = ?, revocation_reason = ?
		WHERE jti = ? AND is_revoked = FALSE`),
		now.Unix(), string(reason), jti,
	)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec, err := s.Get(ctx, jti)
	if err != nil {
		if err == ErrNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return rec.UserID, true, nil
}

func (s *SQL) RevokeAllActiveForUser(ctx context.Context, userID string, reason Reason, excludeJti string, now time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET is_revoked = TRUE, revoked_at = ?, revocation_reason = ?
		WHERE user_id = ? AND is_revoked = FALSE AND expires_at > ?`
	args := []any{now.Unix(), string(reason), userID, now.Unix()}
	if excludeJti != "" {
		query += ` AND jti <> ?`
		args = append(args, excludeJti)
	}

	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (s *SQL) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`DELETE FROM refresh_tokens WHERE expires_at < ? AND is_revoked = TRUE`),
		before.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec        Record
		issuedAt   int64
		expiresAt  int64
		revokedAt  sql.NullInt64
		reason     sql.NullString
		replacedBy sql.NullString
		lastUsedAt sql.NullInt64
	)
	err := row.Scan(
		&rec.Jti, &rec.UserID, &rec.SecretHash, &issuedAt, &expiresAt, &rec.Revoked,
		&revokedAt, &reason, &replacedBy, &rec.DeviceInfo, &rec.IPAddress, &lastUsedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec.IssuedAt = time.Unix(issuedAt, 0).UTC()
	rec.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	if revokedAt.Valid {
		rec.RevokedAt = time.Unix(revokedAt.Int64, 0).UTC()
	}
	if reason.Valid {
		rec.RevocationReason = Reason(reason.String)
	}
	if replacedBy.Valid {
		rec.ReplacedByJti = replacedBy.String
	}
	if lastUsedAt.Valid {
		rec.LastUsedAt = time.Unix(lastUsedAt.Int64, 0).UTC()
	}
	return &rec, nil
}
