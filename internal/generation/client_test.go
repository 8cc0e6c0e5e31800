package generation_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterlab/rosterlab/internal/generation"
	"github.com/rosterlab/rosterlab/pkg/contracts"
)

type fakeProvider struct {
	name  string
	text  string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, _ string) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func TestClient_FirstSuccessWins(t *testing.T) {
	a := &fakeProvider{name: "a", text: `{"ok":true}`}
	b := &fakeProvider{name: "b", text: "unused"}
	c := generation.NewClient([]contracts.Provider{a, b})

	got, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got)
	assert.Equal(t, 0, b.calls)
	assert.Equal(t, []string{"a", "b"}, c.Models())
}

func TestClient_RetryableMovesOn(t *testing.T) {
	a := &fakeProvider{name: "a", err: &generation.StatusError{Code: http.StatusServiceUnavailable}}
	b := &fakeProvider{name: "b", err: &generation.StatusError{Code: http.StatusNotFound}}
	c3 := &fakeProvider{name: "c", text: "done"}
	c := generation.NewClient([]contracts.Provider{a, b, c3})

	got, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestClient_FatalStopsFold(t *testing.T) {
	a := &fakeProvider{name: "a", err: &generation.StatusError{Code: http.StatusBadRequest, Message: "bad prompt"}}
	b := &fakeProvider{name: "b", text: "unused"}
	c := generation.NewClient([]contracts.Provider{a, b})

	_, err := c.Generate(context.Background(), "p")
	var ae *generation.AttemptError
	require.ErrorAs(t, err, &ae)
	assert.False(t, ae.Retryable)
	assert.Equal(t, "a", ae.Model)
	assert.Equal(t, 0, b.calls)
	assert.False(t, generation.IsUpstreamQuota(err))
}

func TestClient_AllRetryableIsQuota(t *testing.T) {
	a := &fakeProvider{name: "a", err: &generation.StatusError{Code: http.StatusTooManyRequests}}
	b := &fakeProvider{name: "b", err: &net.OpError{Op: "dial", Err: errors.New("refused")}}
	c := generation.NewClient([]contracts.Provider{a, b})

	_, err := c.Generate(context.Background(), "p")
	var qe *generation.QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Len(t, qe.Attempts, 2)
	assert.True(t, generation.IsUpstreamQuota(err))
}

func TestClient_EmptyResponseIsFatal(t *testing.T) {
	a := &fakeProvider{name: "a", text: ""}
	b := &fakeProvider{name: "b", text: "unused"}
	c := generation.NewClient([]contracts.Provider{a, b})

	_, err := c.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, generation.ErrEmptyResponse)
	assert.Equal(t, 0, b.calls)
}

func TestClient_AttemptTimeoutIsRetryable(t *testing.T) {
	slow := &fakeProvider{name: "slow", text: "late", delay: time.Second}
	fast := &fakeProvider{name: "fast", text: "ok"}
	c := generation.NewClient([]contracts.Provider{slow, fast}, generation.WithAttemptTimeout(20*time.Millisecond))

	got, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestClient_CallerCancellationIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &fakeProvider{name: "a", delay: time.Second}
	b := &fakeProvider{name: "b", text: "unused"}
	c := generation.NewClient([]contracts.Provider{a, b})

	_, err := c.Generate(ctx, "p")
	var ae *generation.AttemptError
	require.ErrorAs(t, err, &ae)
	assert.False(t, ae.Retryable)
	assert.Equal(t, 0, b.calls)
}

func TestClient_NoProviders(t *testing.T) {
	_, err := generation.NewClient(nil).Generate(context.Background(), "p")
	var qe *generation.QuotaError
	assert.ErrorAs(t, err, &qe)
}

func TestRetryable(t *testing.T) {
	ctx := context.Background()
	for code, want := range map[int]bool{
		400: false, 401: false, 403: false, 404: true, 408: true,
		429: true, 500: true, 502: true, 503: true, 504: true, 418: false,
	} {
		if got := generation.Retryable(ctx, &generation.StatusError{Code: code}); got != want {
			t.Errorf("Retryable(status %d) = %v, want %v", code, got, want)
		}
	}
	if generation.Retryable(ctx, errors.New("boom")) {
		t.Error("Retryable(plain error) = true, want false")
	}
	if !generation.Retryable(ctx, context.DeadlineExceeded) {
		t.Error("Retryable(deadline) = false, want true")
	}
}

func TestOpenAIProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"score\":80}"}}]}`))
	}))
	defer srv.Close()

	p := generation.NewOpenAIProvider(srv.URL, "key", "gpt-4o-mini", 0.7)
	got, err := p.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, `{"score":80}`, got)
	assert.Equal(t, "gpt-4o-mini", p.Name())
}

func TestOpenAIProvider_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := generation.NewOpenAIProvider(srv.URL, "", "m", 0).Generate(context.Background(), "hi")
	var se *generation.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
}
