package test

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	tokenkit "github.com/dkovalenko/tokenkit"
	"github.com/dkovalenko/tokenkit/store"
)

// ExampleNew demonstrates service construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := tokenkit.DefaultConfig()
	// cfg.JWT.PrivateKey / PublicKey come from your key management.

	var st store.Store // e.g. store.NewSQL(db, store.DialectPostgres)

	svc, _ := tokenkit.New().
		WithConfig(cfg).
		WithStore(st).
		WithRedis(rdb).
		Build()
	_ = svc
}

// ExampleService_RotateRefresh shows structured handling of rotation outcomes.
func ExampleService_RotateRefresh() {
	var svc *tokenkit.Service
	var refreshToken string

	pair, err := svc.RotateRefresh(context.Background(), refreshToken, tokenkit.IssueOptions{})
	switch {
	case err == nil:
		_ = pair
	case errors.Is(err, tokenkit.ErrRefreshReuse):
		// Theft signal: the whole token family has been revoked. Force the
		// user to log in again and alert.
	case errors.Is(err, tokenkit.ErrRefreshInvalid):
		// Unknown, expired, or already-dead token.
	}
}

// ExampleService_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleService_MetricsSnapshot() {
	var svc *tokenkit.Service
	snapshot := svc.MetricsSnapshot()
	_ = snapshot
}
