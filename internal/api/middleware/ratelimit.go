package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/internal/metrics"
	"github.com/rosterlab/rosterlab/pkg/contracts"
	pkgmw "github.com/rosterlab/rosterlab/pkg/middleware"
	"github.com/rosterlab/rosterlab/pkg/models"
)

// RateLimit admits requests through limiter keyed on the authenticated
// subject, falling back to the client address for anonymous callers.
// Rejections never reach the wrapped handler.
func RateLimit(endpoint string, limiter contracts.RateLimiter, m *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := pkgmw.Subject(r.Context())
			if key == "" {
				key = "addr:" + r.RemoteAddr
			}
			ok, retryAfter := limiter.Allow(key)
			if !ok {
				m.RateLimited(endpoint)
				log.Info().Str("endpoint", endpoint).Str("key", key).Dur("retry_after", retryAfter).Msg("Rate limit exceeded")
				WriteError(w, http.StatusTooManyRequests, models.CodeRateLimited,
					"rate limit exceeded, wait before trying again", retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
