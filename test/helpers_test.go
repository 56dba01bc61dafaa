//go:build integration
// +build integration

package test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	tokenkit "github.com/dkovalenko/tokenkit"
	"github.com/dkovalenko/tokenkit/store"
)

func newIntegrationService(t *testing.T, mutate func(*tokenkit.Config)) (*tokenkit.Service, redis.UniversalClient) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	st := store.NewSQL(db, store.DialectSQLite)
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init store failed: %v", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keys failed: %v", err)
	}

	cfg := tokenkit.DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.JWT.Issuer = "tokenkit-integration"
	cfg.Refresh.RotationGraceWindow = 0
	if mutate != nil {
		mutate(&cfg)
	}

	svc, err := tokenkit.New().
		WithConfig(cfg).
		WithStore(st).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("build service failed: %v", err)
	}
	t.Cleanup(svc.Close)

	return svc, rdb
}

func issuePair(t *testing.T, svc *tokenkit.Service, userID string) *tokenkit.TokenPair {
	t.Helper()
	pair, err := svc.IssuePair(context.Background(), userID, tokenkit.IssueOptions{})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	return pair
}
