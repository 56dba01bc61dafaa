package middleware

import (
	"context"
	"net/http"
	"strings"

	tokenkit "github.com/dkovalenko/tokenkit"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the validated access claims injected by [Guard],
// or false when the request did not pass through a guard.
func ClaimsFromContext(ctx context.Context) (*tokenkit.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*tokenkit.AccessClaims)
	return claims, ok
}

// Guard returns middleware that reads the Authorization header, validates the
// bearer token through the service, and injects the claims into the request
// context. Requests without a valid token get 401.
func Guard(service *tokenkit.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if service == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := service.ValidateAccess(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
