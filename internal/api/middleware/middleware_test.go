package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/internal/api/middleware"
	"github.com/rosterlab/rosterlab/internal/auth"
	"github.com/rosterlab/rosterlab/internal/metrics"
	"github.com/rosterlab/rosterlab/internal/ratelimit"
	pkgmw "github.com/rosterlab/rosterlab/pkg/middleware"
	"github.com/rosterlab/rosterlab/pkg/models"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Subject", pkgmw.Subject(r.Context()))
	w.WriteHeader(http.StatusOK)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestAuth_RequireAuth(t *testing.T) {
	chain := auth.NewProviderChain(auth.NewAPIKeyProvider([]string{"test-key-1", "test-key-2"}))
	handler := middleware.NewAuthMiddleware(chain, true).Handler(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggest", nil)
	req.Header.Set("X-API-Key", "test-key-2")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid key: status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get("X-Subject") == "" {
		t.Error("valid key: identity not stored in context")
	}

	for name, key := range map[string]string{"missing": "", "wrong": "nope"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/suggest", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s key: status = %d, want %d", name, w.Code, http.StatusUnauthorized)
			continue
		}
		if body := decodeError(t, w); body.Code != models.CodeUnauthorized {
			t.Errorf("%s key: code = %q, want %q", name, body.Code, models.CodeUnauthorized)
		}
	}
}

func TestAuth_OptionalPassesAnonymous(t *testing.T) {
	chain := auth.NewProviderChain(auth.NewAPIKeyProvider(nil))
	handler := middleware.NewAuthMiddleware(chain, false).Handler(http.HandlerFunc(okHandler))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/candidates", nil))
	if w.Code != http.StatusOK {
		t.Errorf("anonymous: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuth_SessionToken(t *testing.T) {
	secret := "session-secret"
	chain := auth.NewProviderChain(auth.NewSessionProvider(secret))
	handler := middleware.NewAuthMiddleware(chain, true).Handler(http.HandlerFunc(okHandler))

	token, err := auth.IssueSessionToken([]byte(secret), "user-7", "Ash", time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggest", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("session: status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("X-Subject"); got != "user-7" {
		t.Errorf("session subject = %q, want %q", got, "user-7")
	}
}

func TestSameOrigin(t *testing.T) {
	handler := middleware.SameOrigin("https://rosterlab.example/")(http.HandlerFunc(okHandler))

	tests := []struct {
		name    string
		origin  string
		referer string
		want    int
	}{
		{"same origin", "https://rosterlab.example", "", http.StatusOK},
		{"case-insensitive", "HTTPS://RosterLab.example", "", http.StatusOK},
		{"foreign origin", "https://evil.example", "", http.StatusForbidden},
		{"foreign referer", "", "https://evil.example/page", http.StatusForbidden},
		{"same referer", "", "https://rosterlab.example/builder", http.StatusOK},
		{"no browser headers", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/suggest", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if tt.referer != "" {
			req.Header.Set("Referer", tt.referer)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, w.Code, tt.want)
		}
	}

	disabled := middleware.SameOrigin("")(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggest", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	disabled.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("disabled check: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimit(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := ratelimit.New(2, time.Minute, ratelimit.WithClock(func() time.Time { return now }))
	calls := 0
	handler := middleware.RateLimit("suggest", limiter, metrics.New())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/suggest", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := send(); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
	w := send()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}
	body := decodeError(t, w)
	if body.Code != models.CodeRateLimited || body.RetryAfterSeconds != 60 {
		t.Errorf("body = %+v, want RATE_LIMITED with 60s", body)
	}
}

func TestWriteError_RoundsRetryAfterUp(t *testing.T) {
	w := httptest.NewRecorder()
	middleware.WriteError(w, http.StatusTooManyRequests, models.CodeRateLimited, "slow down", 1500*time.Millisecond)
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want %q", got, "2")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestLogger_RecordsRouteAndErrorCode(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Post("/api/v1/suggest/{round}", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusTooManyRequests, models.CodeUpstreamQuota, "busy", time.Minute)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/suggest/7", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["level"] != "warn" {
		t.Errorf("level = %v, want warn", line["level"])
	}
	if line["code"] != models.CodeUpstreamQuota {
		t.Errorf("code = %v, want %s", line["code"], models.CodeUpstreamQuota)
	}
	if line["route"] != "/api/v1/suggest/{round}" {
		t.Errorf("route = %v, want /api/v1/suggest/{round}", line["route"])
	}
	if line["path"] != "/api/v1/suggest/7" {
		t.Errorf("path = %v, want /api/v1/suggest/7", line["path"])
	}
}

func TestLogger_SuccessHasNoCode(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	handler := middleware.Logger(http.HandlerFunc(okHandler))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if _, ok := line["code"]; ok {
		t.Errorf("code = %v, want absent", line["code"])
	}
	if line["level"] != "info" {
		t.Errorf("level = %v, want info", line["level"])
	}
}
