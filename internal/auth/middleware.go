package auth

import (
	"errors"
	"net/http"

	"github.com/meridian-ops/meridian/internal/platform/httpx"
	"github.com/meridian-ops/meridian/internal/shared"
)

// RequireToken resolves the bearer token and injects the principal into the
// request context. Requests without a valid token are rejected.
func RequireToken(tokens *shared.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				httpx.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}
			principal, err := tokens.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, shared.ErrInvalidToken) {
					httpx.Error(w, http.StatusUnauthorized, "invalid token")
					return
				}
				httpx.Internal(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}
