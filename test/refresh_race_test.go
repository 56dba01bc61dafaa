//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"sync"
	"testing"

	tokenkit "github.com/dkovalenko/tokenkit"
)

func TestRotateRaceSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newIntegrationService(t, nil)

	pair := issuePair(t, svc, "u1")

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.RotateRefresh(ctx, pair.RefreshToken, tokenkit.IssueOptions{})
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, tokenkit.ErrRefreshReuse), errors.Is(err, tokenkit.ErrRefreshInvalid):
		default:
			t.Fatalf("unexpected rotate error: %v", err)
		}
	}

	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}
}
