package middleware

import (
	"net/http"

	tokenkit "github.com/dkovalenko/tokenkit"
)

// RequirePermissions wraps [Guard] and additionally rejects requests whose
// token lacks any of the listed permissions. Tokens are validated first, so a
// revoked token gets 401 before the permission check runs.
func RequirePermissions(service *tokenkit.Service, required ...string) func(http.Handler) http.Handler {
	guard := Guard(service)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			held := make(map[string]struct{}, len(claims.Permissions))
			for _, p := range claims.Permissions {
				held[p] = struct{}{}
			}
			for _, want := range required {
				if _, ok := held[want]; !ok {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		}))
	}
}
