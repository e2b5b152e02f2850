package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/civicwatch/civicwatch/internal/domain/user"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

// PrincipalResolver resolves the caller from a bearer token.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (user.Principal, error)
}

// AuthMiddleware resolves the bearer token into a principal. Requests
// without an Authorization header continue anonymously and see only the
// public listing; a header with an unknown token is rejected.
func AuthMiddleware(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				next.ServeHTTP(w, r)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil || !principal.SignedIn() {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(user.WithPrincipal(r.Context(), principal)))
		})
	}
}

// StaticPrincipal attaches p to every request. It stands in for
// AuthMiddleware when authentication is disabled.
func StaticPrincipal(p user.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(user.WithPrincipal(r.Context(), p)))
		})
	}
}
