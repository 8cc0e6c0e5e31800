package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/pkg/contracts"
	pkgmw "github.com/rosterlab/rosterlab/pkg/middleware"
	"github.com/rosterlab/rosterlab/pkg/models"
)

// AuthMiddleware authenticates requests using the pluggable
// AuthProviderChain and stores the resulting Identity in context.
type AuthMiddleware struct {
	chain       contracts.AuthProviderChain
	requireAuth bool
}

// NewAuthMiddleware creates the auth middleware. With requireAuth set,
// requests that no provider recognises are rejected.
func NewAuthMiddleware(chain contracts.AuthProviderChain, requireAuth bool) *AuthMiddleware {
	return &AuthMiddleware{
		chain:       chain,
		requireAuth: requireAuth,
	}
}

// Handler returns the HTTP handler middleware that authenticates requests.
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := am.chain.Authenticate(r.Context(), r)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			w.Header().Set("WWW-Authenticate", `Bearer realm="rosterlab"`)
			WriteError(w, http.StatusUnauthorized, models.CodeUnauthorized, "invalid session", 0)
			return
		}

		if identity == nil && am.requireAuth {
			w.Header().Set("WWW-Authenticate", `Bearer realm="rosterlab"`)
			WriteError(w, http.StatusUnauthorized, models.CodeUnauthorized,
				"sign in required: send a session token (Authorization: Bearer or session cookie) or X-API-Key", 0)
			return
		}

		next.ServeHTTP(w, r.WithContext(pkgmw.SetIdentity(r.Context(), identity)))
	})
}
