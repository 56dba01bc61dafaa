package middleware

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"

	tokenkit "github.com/dkovalenko/tokenkit"
	"github.com/dkovalenko/tokenkit/store"
)

func newGuardService(t *testing.T) *tokenkit.Service {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	st := store.NewSQL(db, store.DialectSQLite)
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}

	cfg := tokenkit.DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub

	svc, err := tokenkit.New().WithConfig(cfg).WithStore(st).Build()
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func issueAccess(t *testing.T, svc *tokenkit.Service, perms []string) string {
	t.Helper()
	pair, err := svc.IssuePair(context.Background(), "user-1", tokenkit.IssueOptions{Permissions: perms})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return pair.AccessToken
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims.Subject == "" {
			http.Error(w, "missing claims", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardRejectsMissingHeader(t *testing.T) {
	svc := newGuardService(t)
	h := Guard(svc)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGuardRejectsMalformedToken(t *testing.T) {
	svc := newGuardService(t)
	h := Guard(svc)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGuardInjectsClaims(t *testing.T) {
	svc := newGuardService(t)
	token := issueAccess(t, svc, nil)
	h := Guard(svc)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRequirePermissions(t *testing.T) {
	svc := newGuardService(t)
	reader := issueAccess(t, svc, []string{"docs:read"})
	writer := issueAccess(t, svc, []string{"docs:read", "docs:write"})

	h := RequirePermissions(svc, "docs:write")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for missing permission, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+writer)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for held permission, got %d", rec.Code)
	}
}
