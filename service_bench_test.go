package tokenkit

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"testing"

	"github.com/dkovalenko/tokenkit/store"
)

func newBenchmarkService(b *testing.B) *Service {
	b.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		b.Fatalf("generate keys: %v", err)
	}

	cfg := defaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		b.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	b.Cleanup(func() { _ = db.Close() })

	st := store.NewSQL(db, store.DialectSQLite)
	if err := st.Init(context.Background()); err != nil {
		b.Fatalf("init store: %v", err)
	}

	svc, err := New().WithConfig(cfg).WithStore(st).Build()
	if err != nil {
		b.Fatalf("build service: %v", err)
	}
	b.Cleanup(svc.Close)
	return svc
}

func BenchmarkIssuePair(b *testing.B) {
	svc := newBenchmarkService(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.IssuePair(ctx, "user-1", IssueOptions{}); err != nil {
			b.Fatalf("issue failed: %v", err)
		}
	}
}

func BenchmarkValidateAccess(b *testing.B) {
	svc := newBenchmarkService(b)
	ctx := context.Background()

	pair, err := svc.IssuePair(ctx, "user-1", IssueOptions{})
	if err != nil {
		b.Fatalf("issue failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.ValidateAccess(ctx, pair.AccessToken); err != nil {
			b.Fatalf("validate failed: %v", err)
		}
	}
}

func BenchmarkRotateRefresh(b *testing.B) {
	svc := newBenchmarkService(b)
	ctx := context.Background()

	pair, err := svc.IssuePair(ctx, "user-1", IssueOptions{})
	if err != nil {
		b.Fatalf("issue failed: %v", err)
	}
	refresh := pair.RefreshToken

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := svc.RotateRefresh(ctx, refresh, IssueOptions{})
		if err != nil {
			b.Fatalf("rotate failed: %v", err)
		}
		refresh = next.RefreshToken
	}
}

func BenchmarkIssueAndRevoke(b *testing.B) {
	svc := newBenchmarkService(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pair, err := svc.IssuePair(ctx, "user-1", IssueOptions{})
		if err != nil {
			b.Fatalf("issue failed: %v", err)
		}
		if err := svc.Revoke(ctx, pair.RefreshToken, ""); err != nil {
			b.Fatalf("revoke failed: %v", err)
		}
	}
}
