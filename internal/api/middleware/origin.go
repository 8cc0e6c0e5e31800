package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/pkg/models"
)

// SameOrigin rejects browser requests whose Origin (or, failing that,
// Referer) does not match expected. Requests carrying neither header come
// from non-browser clients and pass; they still need a valid credential.
// An empty expected origin disables the check.
func SameOrigin(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimRight(expected, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}
			origin := requestOrigin(r)
			if origin != "" && !strings.EqualFold(origin, expected) {
				log.Warn().Str("origin", origin).Str("path", r.URL.Path).Msg("Cross-origin request rejected")
				WriteError(w, http.StatusForbidden, models.CodeForbiddenOrigin, "cross-origin request rejected", 0)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return strings.TrimRight(o, "/")
	}
	ref := r.Header.Get("Referer")
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return "null"
	}
	return u.Scheme + "://" + u.Host
}
